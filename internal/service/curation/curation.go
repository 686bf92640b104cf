package curation

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/stevenhuff/media-renamer/internal/common"
	"github.com/stevenhuff/media-renamer/internal/entity"
	"github.com/stevenhuff/media-renamer/internal/service/queue"
	"github.com/stevenhuff/media-renamer/internal/util"
)

const (
	serviceName = "curation"
)

type FSAdapter interface {
	Exists(path string) bool
	IsDir(path string) bool
	IsRegularFile(path string) bool
	MkdirAll(path string) error
	Rename(oldPath, newPath string) error
	Remove(path string) error
}

type Notifier interface {
	Publish(t entity.EventType, message string)
}

type curationService struct {
	root      string
	extrasDir string
	fs        FSAdapter
	notify    Notifier
	log       *slog.Logger
}

func NewCurationService(root, extrasDir string, fs FSAdapter, notify Notifier, log *slog.Logger) *curationService {
	return &curationService{
		root:      root,
		extrasDir: extrasDir,
		fs:        fs,
		notify:    notify,
		log:       log.With(slog.String("service", serviceName)),
	}
}

// Delete removes the named files from a queue folder. Each file is handled on
// its own: a missing one is reported and the rest still get deleted.
func (c *curationService) Delete(ctx context.Context, folderName string, files []string) ([]string, error) {
	entry, err := c.entry(folderName)
	if err != nil {
		return nil, err
	}

	return c.each(ctx, entry, files, "delete", func(src string) error {
		return c.fs.Remove(src)
	}), nil
}

// MoveToExtras moves the named files of a queue folder into its extras
// subfolder, creating it when needed. Failures are reported per file.
func (c *curationService) MoveToExtras(ctx context.Context, folderName string, files []string) ([]string, error) {
	entry, err := c.entry(folderName)
	if err != nil {
		return nil, err
	}

	extrasPath := filepath.Join(entry.Path, c.extrasDir)
	if err := c.fs.MkdirAll(extrasPath); err != nil {
		c.log.Error("Cannot create extras folder", slog.String("path", extrasPath), slog.Any("error", err))
		c.notify.Publish(entity.EventError, fmt.Sprintf("Error creating %s folder: %s", c.extrasDir, err))

		return nil, fmt.Errorf("cannot create extras folder: %w", err)
	}

	return c.each(ctx, entry, files, "move to "+c.extrasDir, func(src string) error {
		dst := filepath.Join(extrasPath, filepath.Base(src))
		if c.fs.Exists(dst) {
			return fmt.Errorf("%s: %w", dst, common.ErrAlreadyExists)
		}

		return c.fs.Rename(src, dst)
	}), nil
}

func (c *curationService) entry(folderName string) (entity.QueueEntry, error) {
	entry, err := queue.Resolve(c.root, folderName, c.fs.IsDir)
	if err != nil {
		c.log.Error("Cannot resolve folder", slog.String("folder", folderName), slog.Any("error", err))
		c.notify.Publish(entity.EventError, fmt.Sprintf("Error: %s", err))

		return entity.QueueEntry{}, err
	}

	return entry, nil
}

// each applies op to every requested name that is a regular file directly
// inside the entry and returns the names op succeeded for.
func (c *curationService) each(ctx context.Context, entry entity.QueueEntry, files []string, opName string, op func(src string) error) []string {
	log := c.log.With(slog.String("folder", entry.Name), slog.String("op", opName))

	done := make([]string, 0, len(files))
	for _, name := range files {
		if ctx.Err() != nil {
			log.Warn("Interrupted", slog.Int("done", len(done)))

			break
		}

		if err := c.one(entry, name, op); err != nil {
			log.Error("File failed", slog.String("file", name), slog.Any("error", err))
			c.notify.Publish(entity.EventError, fmt.Sprintf("Error (%s) %s: %s", opName, name, err))

			continue
		}

		log.Info("File done", slog.String("file", name))
		c.notify.Publish(entity.EventSuccess, fmt.Sprintf("Done (%s): %s", opName, name))
		done = append(done, name)
	}

	return done
}

func (c *curationService) one(entry entity.QueueEntry, name string, op func(src string) error) error {
	if !util.IsPlainName(name) {
		return fmt.Errorf("file %q: %w", name, common.ErrInvalidName)
	}

	src := filepath.Join(entry.Path, name)
	if !c.fs.IsRegularFile(src) {
		return fmt.Errorf("file %s not found: %w", name, common.ErrNotFound)
	}

	return op(src)
}
