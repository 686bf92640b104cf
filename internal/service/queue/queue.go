package queue

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
	serviceName = "queue"
)

type FSAdapter interface {
	ListDirs(root string) ([]string, error)
	ListFiles(dir string) ([]string, error)
	IsDir(path string) bool
}

type HintReader interface {
	Hint(folderPath string) (*entity.FolderHint, error)
}

type queueService struct {
	root  string
	fs    FSAdapter
	hints HintReader
	log   *slog.Logger
}

func NewQueueService(root string, fs FSAdapter, hints HintReader, log *slog.Logger) *queueService {
	return &queueService{
		root:  root,
		fs:    fs,
		hints: hints,
		log:   log.With(slog.String("service", serviceName)),
	}
}

func (q *queueService) Root() string {
	return q.root
}

// Folders lists the visible directories of the queue root.
func (q *queueService) Folders(ctx context.Context) ([]string, error) {
	if !q.fs.IsDir(q.root) {
		return nil, fmt.Errorf("media directory %s: %w", q.root, common.ErrNotFound)
	}

	folders, err := q.fs.ListDirs(q.root)
	if err != nil {
		q.log.Error("Cannot list queue", slog.String("root", q.root), slog.Any("error", err))

		return nil, fmt.Errorf("cannot list queue: %w", err)
	}

	return folders, nil
}

func (q *queueService) Files(ctx context.Context, folderName string) ([]string, error) {
	entry, err := q.Entry(folderName)
	if err != nil {
		return nil, err
	}

	files, err := q.fs.ListFiles(entry.Path)
	if err != nil {
		q.log.Error("Cannot list folder files", slog.String("folder", entry.Path), slog.Any("error", err))

		return nil, fmt.Errorf("cannot list files of %s: %w", folderName, err)
	}

	return files, nil
}

func (q *queueService) Hint(ctx context.Context, folderName string) (*entity.FolderHint, error) {
	entry, err := q.Entry(folderName)
	if err != nil {
		return nil, err
	}

	hint, err := q.hints.Hint(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot read hint of %s: %w", folderName, err)
	}

	return hint, nil
}

// Entry resolves a queue folder name. The name must be a single path element
// naming an existing directory under the queue root.
func (q *queueService) Entry(folderName string) (entity.QueueEntry, error) {
	return Resolve(q.root, folderName, q.fs.IsDir)
}

func Resolve(root, folderName string, isDir func(string) bool) (entity.QueueEntry, error) {
	if !util.IsPlainName(folderName) {
		return entity.QueueEntry{}, fmt.Errorf("folder %q: %w", folderName, common.ErrInvalidName)
	}

	path := filepath.Join(root, folderName)
	if !isDir(path) {
		return entity.QueueEntry{}, fmt.Errorf("folder %s does not exist: %w", path, common.ErrNotFound)
	}

	return entity.QueueEntry{Name: folderName, Path: path}, nil
}
