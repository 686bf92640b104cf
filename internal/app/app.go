package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"
	"github.com/stevenhuff/media-renamer/internal/adapter/fsadapter"
	"github.com/stevenhuff/media-renamer/internal/adapter/mdadapter"
	"github.com/stevenhuff/media-renamer/internal/adapter/omdb"
	"github.com/stevenhuff/media-renamer/internal/common"
	"github.com/stevenhuff/media-renamer/internal/config"
	"github.com/stevenhuff/media-renamer/internal/entity"
	httphandler "github.com/stevenhuff/media-renamer/internal/handler/http"
	"github.com/stevenhuff/media-renamer/internal/logging"
	"github.com/stevenhuff/media-renamer/internal/notify"
	"github.com/stevenhuff/media-renamer/internal/service/curation"
	"github.com/stevenhuff/media-renamer/internal/service/lookup"
	"github.com/stevenhuff/media-renamer/internal/service/mover"
	"github.com/stevenhuff/media-renamer/internal/service/queue"
	"github.com/stevenhuff/media-renamer/internal/service/relocate"
	"github.com/stevenhuff/media-renamer/internal/storage/watch"
)

const (
	stopTimeout       = 5 * time.Second
	pingTimeout       = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	keepAlive         = 30 * time.Second
)

// QueueItem is one row of the queue overview.
type QueueItem struct {
	Name  string
	Files int
	Hint  string
}

type App struct {
	cfgPath string
	cfg     *config.Config
	srv     *http.Server
	hub     *notify.Hub
	lock    *flock.Flock
	rdb     *redis.Client
	cancel  context.CancelFunc
	logFile io.Closer
	log     *slog.Logger
}

func New(cfgPath string) *App {
	return &App{
		cfgPath: cfgPath,
	}
}

// Start prepares the library roots, takes the instance lock and starts
// serving in the background.
func (a *App) Start() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, logFile := logging.New(&cfg.Log)
	a.log, a.logFile = log, logFile

	fsa := fsadapter.NewFSAdapter(log)
	for _, root := range cfg.Roots() {
		if err := fsa.MkdirAll(root); err != nil {
			a.release()

			return fmt.Errorf("cannot create destination root %s: %w", root, err)
		}
	}

	queueExists := fsa.IsDir(cfg.Library.QueueDir)
	if !queueExists {
		log.Warn("Queue directory does not exist", slog.String("path", cfg.Library.QueueDir))
	}

	if err := a.acquireLock(queueExists); err != nil {
		a.release()

		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.hub = notify.NewHub(cfg.Events.Buffer, log)

	if cfg.Events.RedisURL != "" {
		if err := a.startRelay(ctx); err != nil {
			a.release()

			return err
		}
	}

	if queueExists {
		w := watch.NewQueueWatcher(cfg.Library.QueueDir, cfg.Events.WatchDebounce, a.hub, log)
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error("Queue watcher stopped", slog.Any("error", err))
			}
		}()
	}

	a.srv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           a.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info("Start listen", slog.String("addr", cfg.Listen))

		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Could not serve", slog.String("listen_addr", cfg.Listen), slog.Any("error", err))
			os.Exit(2)
		}
	}()

	return nil
}

func (a *App) routes() http.Handler {
	cfg, log := a.cfg, a.log
	fs := fsadapter.NewFSAdapter(log)

	queueSrv := queue.NewQueueService(cfg.Library.QueueDir, fs, mdadapter.NewMDAdapter(fs.Fs(), cfg.Library.HintFileName, log), log)
	lookupSrv := lookup.NewLookupService(omdb.NewClient(&cfg.OMDB, log), log)
	relocateSrv := relocate.NewRelocateService(cfg.Library.QueueDir, fs, a.hub, log)
	moverSrv := mover.NewMoverService(cfg.Library.QueueDir, cfg.Library.MovieDir, cfg.Library.ShowDir, fs, a.hub, log)
	curationSrv := curation.NewCurationService(cfg.Library.QueueDir, cfg.Library.ExtrasDirName, fs, a.hub, log)

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", httphandler.NewIndexHandler(log))
	mux.Handle("GET /healthz", httphandler.NewHealthHandler(a.hub, log))
	mux.Handle("GET /folders", httphandler.NewFoldersHandler(queueSrv, log))
	mux.Handle("POST /files", httphandler.NewFilesHandler(queueSrv, log))
	mux.Handle("POST /folder_hint", httphandler.NewFolderHintHandler(queueSrv, log))
	mux.Handle("POST /search", httphandler.NewSearchHandler(lookupSrv, log))
	mux.Handle("POST /search_suggestions", httphandler.NewSuggestionsHandler(lookupSrv, log))
	mux.Handle("POST /get_episode", httphandler.NewEpisodeHandler(lookupSrv, log))
	mux.Handle("POST /rename", httphandler.NewRenameHandler(relocateSrv, log))
	mux.Handle("POST /move", httphandler.NewMoveHandler(moverSrv, log))
	mux.Handle("POST /delete_files", httphandler.NewDeleteFilesHandler(curationSrv, log))
	mux.Handle("POST /move_to_extras", httphandler.NewMoveToExtrasHandler(curationSrv, log))
	mux.Handle("GET /stream", httphandler.NewStreamHandler(a.hub, keepAlive, log))

	return mux
}

// acquireLock guards the queue against a second instance. Without a queue
// directory the lock lives in the temp dir.
func (a *App) acquireLock(queueExists bool) error {
	dir := a.cfg.Library.QueueDir
	if !queueExists {
		dir = os.TempDir()
	}

	a.lock = flock.New(filepath.Join(dir, a.cfg.Library.LockFileName))

	ok, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("cannot acquire lock %s: %w", a.lock.Path(), err)
	}

	if !ok {
		return fmt.Errorf("%s: %w", a.lock.Path(), common.ErrAlreadyRunning)
	}

	return nil
}

func (a *App) startRelay(ctx context.Context) error {
	opt, err := redis.ParseURL(a.cfg.Events.RedisURL)
	if err != nil {
		return fmt.Errorf("cannot parse redis url: %w", err)
	}

	a.rdb = redis.NewClient(opt)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := a.rdb.Ping(pctx).Result(); err != nil {
		return fmt.Errorf("cannot connect to redis: %w", err)
	}

	go notify.NewRedisRelay(a.rdb, a.cfg.Events.RedisChannel, a.hub, a.log).Run(ctx)

	return nil
}

// Refresh tells connected clients to reload the queue.
func (a *App) Refresh() {
	if a.hub != nil {
		a.hub.Publish(entity.EventQueueChanged, "refresh")
	}
}

func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	// Open event streams keep Shutdown waiting, end them first.
	if a.hub != nil {
		a.hub.Close()
	}

	if a.srv != nil {
		if err := a.srv.Shutdown(ctx); err != nil {
			a.log.Error("Cannot shutdown server", slog.Any("error", err))
		}
	}

	a.release()
}

func (a *App) release() {
	if a.cancel != nil {
		a.cancel()
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("Cannot close redis client", slog.Any("error", err))
		}
	}

	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			a.log.Error("Cannot release lock", slog.Any("error", err))
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}
}

// Queue lists the queue folders with their file count and hinted title.
func (a *App) Queue(ctx context.Context) ([]QueueItem, error) {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return nil, err
	}

	log := logging.Discard()
	fsa := fsadapter.NewFSAdapter(log)
	srv := queue.NewQueueService(cfg.Library.QueueDir, fsa, mdadapter.NewMDAdapter(fsa.Fs(), cfg.Library.HintFileName, log), log)

	return listQueue(ctx, srv)
}

type queueLister interface {
	Folders(ctx context.Context) ([]string, error)
	Files(ctx context.Context, folderName string) ([]string, error)
	Hint(ctx context.Context, folderName string) (*entity.FolderHint, error)
}

func listQueue(ctx context.Context, srv queueLister) ([]QueueItem, error) {
	folders, err := srv.Folders(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]QueueItem, 0, len(folders))
	for _, name := range folders {
		item := QueueItem{Name: name}

		if files, err := srv.Files(ctx, name); err == nil {
			item.Files = len(files)
		}

		if hint, err := srv.Hint(ctx, name); err == nil {
			item.Hint = hint.Title
		}

		items = append(items, item)
	}

	return items, nil
}
