package mover

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/stevenhuff/media-renamer/internal/common"
	"github.com/stevenhuff/media-renamer/internal/entity"
	"github.com/stevenhuff/media-renamer/internal/util"
)

const (
	serviceName = "mover"
)

type FSAdapter interface {
	Exists(path string) bool
	IsDir(path string) bool
	MoveTree(src, dst string) error
}

type Notifier interface {
	Publish(t entity.EventType, message string)
}

type moverService struct {
	queueRoot string
	roots     map[entity.Destination]string
	fs        FSAdapter
	notify    Notifier
	log       *slog.Logger
}

func NewMoverService(queueRoot, movieRoot, showRoot string, fs FSAdapter, notify Notifier, log *slog.Logger) *moverService {
	return &moverService{
		queueRoot: queueRoot,
		roots: map[entity.Destination]string{
			entity.DestinationMovie: movieRoot,
			entity.DestinationShow:  showRoot,
		},
		fs:     fs,
		notify: notify,
		log:    log.With(slog.String("service", serviceName)),
	}
}

// Move relocates a processed folder into the destination library. The folder
// is given as a path inside the queue root, absolute or relative to it.
// Nothing is touched when the target already exists.
func (m *moverService) Move(ctx context.Context, folderPath string, dest entity.Destination) (string, error) {
	log := m.log.With(slog.String("folder", folderPath), slog.String("destination", string(dest)))

	target, err := m.move(ctx, folderPath, dest)
	if err != nil {
		log.Error("Cannot move folder", slog.Any("error", err))
		m.notify.Publish(entity.EventError, fmt.Sprintf("Error moving %s: %s", folderPath, err))

		return "", err
	}

	log.Info("Folder moved", slog.String("path", target))
	m.notify.Publish(entity.EventSuccess, fmt.Sprintf("Moved %s to %s", folderPath, target))

	return target, nil
}

func (m *moverService) move(ctx context.Context, folderPath string, dest entity.Destination) (string, error) {
	root, ok := m.roots[dest]
	if !ok {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidDestination, dest)
	}

	src, err := m.source(folderPath)
	if err != nil {
		return "", err
	}

	if !m.fs.Exists(src) {
		return "", fmt.Errorf("source folder %s does not exist: %w", src, common.ErrNotFound)
	}

	if !m.fs.IsDir(root) {
		return "", fmt.Errorf("destination root %s does not exist: %w", root, common.ErrNotFound)
	}

	target := filepath.Join(root, filepath.Base(src))
	if m.fs.Exists(target) {
		return "", fmt.Errorf("destination %s: %w", target, common.ErrAlreadyExists)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.notify.Publish(entity.EventInfo, fmt.Sprintf("Moving %s to %s...", filepath.Base(src), root))

	if err := m.fs.MoveTree(src, target); err != nil {
		return "", fmt.Errorf("cannot move %s: %w", src, err)
	}

	return target, nil
}

func (m *moverService) source(folderPath string) (string, error) {
	if folderPath == "" {
		return "", fmt.Errorf("empty folder path: %w", common.ErrInvalidName)
	}

	src := folderPath
	if !filepath.IsAbs(src) {
		src = filepath.Join(m.queueRoot, src)
	}
	src = filepath.Clean(src)

	if src == filepath.Clean(m.queueRoot) || !util.Within(m.queueRoot, src) {
		return "", fmt.Errorf("folder %q is outside the queue: %w", folderPath, common.ErrInvalidName)
	}

	return src, nil
}
