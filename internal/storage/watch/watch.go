package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stevenhuff/media-renamer/internal/common"
	"github.com/stevenhuff/media-renamer/internal/entity"
	"github.com/stevenhuff/media-renamer/internal/util"
)

const (
	defaultDebounce = time.Second
	queueChanged    = "changed"
)

type Notifier interface {
	Publish(t entity.EventType, message string)
}

// queueWatcher reports changes to the direct children of the queue root.
// Bursts of filesystem events are coalesced into one notification.
type queueWatcher struct {
	running  atomic.Bool
	root     string
	debounce time.Duration
	notify   Notifier
	log      *slog.Logger
}

func NewQueueWatcher(root string, debounce time.Duration, notify Notifier, log *slog.Logger) *queueWatcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &queueWatcher{
		root:     root,
		debounce: debounce,
		notify:   notify,
		log:      log.With(slog.String("item", "QueueWatcher")),
	}
}

// Run blocks until ctx is done.
func (w *queueWatcher) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return common.ErrAlreadyRunning
	}
	defer w.running.Store(false)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.root); err != nil {
		return fmt.Errorf("cannot watch %s: %w", w.root, common.IOFailure(err))
	}

	w.log.Info("Watching queue", slog.String("root", w.root))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := false

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Stop watching queue")

			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if !w.relevant(ev) {
				continue
			}

			w.log.Debug("Queue event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))

			if !pending {
				timer.Reset(w.debounce)
				pending = true
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.log.Error("Watcher error", slog.Any("error", err))
		case <-timer.C:
			pending = false
			w.notify.Publish(entity.EventQueueChanged, queueChanged)
		}
	}
}

func (w *queueWatcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}

	if filepath.Dir(ev.Name) != filepath.Clean(w.root) {
		return false
	}

	return !util.IsHidden(filepath.Base(ev.Name))
}
