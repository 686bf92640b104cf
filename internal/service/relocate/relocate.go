package relocate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stevenhuff/media-renamer/internal/common"
	"github.com/stevenhuff/media-renamer/internal/entity"
	"github.com/stevenhuff/media-renamer/internal/naming"
	"github.com/stevenhuff/media-renamer/internal/service/queue"
)

const (
	serviceName = "relocate"

	metadataTitleKey = "Title"
)

type FSAdapter interface {
	Exists(path string) bool
	IsDir(path string) bool
	MkdirAll(path string) error
	Rename(oldPath, newPath string) error
	RemoveIfEmpty(dir string) (bool, error)
	Entries(dir string) ([]os.FileInfo, error)
}

type Notifier interface {
	Publish(t entity.EventType, message string)
}

// Request is one rename call. Metadata is the OMDb episode document as JSON,
// it is only read when the series path is taken.
type Request struct {
	FolderName string
	Title      string
	Year       string
	Metadata   string
	IsSeries   bool
	Season     string
	Episode    string
}

func (r *Request) series() bool {
	return r.IsSeries && r.Season != "" && r.Episode != ""
}

type relocateService struct {
	root   string
	fs     FSAdapter
	notify Notifier
	log    *slog.Logger
}

func NewRelocateService(root string, fs FSAdapter, notify Notifier, log *slog.Logger) *relocateService {
	return &relocateService{
		root:   root,
		fs:     fs,
		notify: notify,
		log:    log.With(slog.String("service", serviceName)),
	}
}

// Relocate renames a queue folder in place and then renames the files in it.
// Steps already done are not undone when a later one fails.
func (s *relocateService) Relocate(ctx context.Context, req *Request) (*entity.RelocationPlan, error) {
	log := s.log.With(slog.String("folder", req.FolderName))

	plan, err := s.relocate(ctx, req, log)
	if err != nil {
		log.Error("Cannot relocate folder", slog.Any("error", err))
		s.notify.Publish(entity.EventError, fmt.Sprintf("Error renaming %s: %s", req.FolderName, err))

		return nil, err
	}

	log.Info("Folder relocated", slog.String("path", plan.FinalPath), slog.Bool("series", plan.IsSeries))
	s.notify.Publish(entity.EventSuccess, fmt.Sprintf("Renamed %s to %s", req.FolderName, plan.FinalPath))

	return plan, nil
}

func (s *relocateService) relocate(ctx context.Context, req *Request, log *slog.Logger) (*entity.RelocationPlan, error) {
	entry, err := queue.Resolve(s.root, req.FolderName, s.fs.IsDir)
	if err != nil {
		return nil, err
	}

	title := naming.CleanTitle(req.Title)
	if title == "" {
		return nil, fmt.Errorf("title %q has no usable characters: %w", req.Title, common.ErrInvalidMetadata)
	}

	s.notify.Publish(entity.EventInfo, fmt.Sprintf("Renaming %s...", entry.Name))

	var (
		plan  *entity.RelocationPlan
		moved map[string]struct{}
	)

	if req.series() {
		plan, moved, err = s.relocateSeries(entry, req, log)
	} else {
		plan, err = s.relocateMovie(entry, req, log)
	}
	if err != nil {
		return nil, err
	}

	if err := s.renameFiles(ctx, plan, moved, log); err != nil {
		return nil, err
	}

	return plan, nil
}

// relocateSeries moves the content of the entry into <show>/<season>, next to
// the entry. It returns the names it moved so only those get renamed.
func (s *relocateService) relocateSeries(entry entity.QueueEntry, req *Request, log *slog.Logger) (*entity.RelocationPlan, map[string]struct{}, error) {
	episodeTitle, err := episodeTitle(req.Metadata)
	if err != nil {
		return nil, nil, err
	}

	showPath := filepath.Join(filepath.Dir(entry.Path), naming.CleanTitle(req.Title))
	seasonName := naming.SeasonFolder(req.Season)
	seasonPath := filepath.Join(showPath, seasonName)

	plan := &entity.RelocationPlan{
		FinalPath:    seasonPath,
		FilenameBase: naming.EpisodeBaseName(req.Title, req.Season, req.Episode, episodeTitle),
		IsSeries:     true,
	}

	if err := s.fs.MkdirAll(seasonPath); err != nil {
		return nil, nil, fmt.Errorf("cannot create season folder: %w", err)
	}

	items, err := s.fs.Entries(entry.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read folder: %w", err)
	}

	// An entry already named after the show holds the season folder itself.
	inPlace := showPath == entry.Path

	moved := make(map[string]struct{}, len(items))
	for _, item := range items {
		if inPlace && item.Name() == seasonName {
			continue
		}

		if err := s.fs.Rename(filepath.Join(entry.Path, item.Name()), filepath.Join(seasonPath, item.Name())); err != nil {
			return nil, nil, fmt.Errorf("cannot move %s: %w", item.Name(), err)
		}

		moved[item.Name()] = struct{}{}
	}

	if !inPlace {
		removed, err := s.fs.RemoveIfEmpty(entry.Path)
		if err != nil {
			log.Warn("Cannot remove queue folder", slog.Any("error", err))
		} else if !removed {
			log.Info("Queue folder is not empty, left in place")
		}
	}

	return plan, moved, nil
}

func (s *relocateService) relocateMovie(entry entity.QueueEntry, req *Request, log *slog.Logger) (*entity.RelocationPlan, error) {
	name := naming.MovieName(req.Title, req.Year)
	finalPath := filepath.Join(filepath.Dir(entry.Path), name)

	plan := &entity.RelocationPlan{
		FinalPath:    finalPath,
		FilenameBase: name,
	}

	if finalPath == entry.Path {
		return plan, nil
	}

	if s.fs.Exists(finalPath) {
		return nil, fmt.Errorf("folder %s: %w", finalPath, common.ErrAlreadyExists)
	}

	if err := s.fs.Rename(entry.Path, finalPath); err != nil {
		return nil, fmt.Errorf("cannot rename folder: %w", err)
	}

	log.Debug("Folder renamed", slog.String("to", finalPath))

	return plan, nil
}

// renameFiles renames the direct files of plan.FinalPath. When only is not
// nil, files outside it are left alone. Two files may map to the same name,
// the later rename wins.
func (s *relocateService) renameFiles(ctx context.Context, plan *entity.RelocationPlan, only map[string]struct{}, log *slog.Logger) error {
	items, err := s.fs.Entries(plan.FinalPath)
	if err != nil {
		return fmt.Errorf("cannot read folder: %w", err)
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !item.Mode().IsRegular() {
			continue
		}

		if only != nil {
			if _, ok := only[item.Name()]; !ok {
				continue
			}
		}

		newName := naming.FileName(plan.FilenameBase, item.Name())
		if newName == item.Name() {
			continue
		}

		if err := s.fs.Rename(filepath.Join(plan.FinalPath, item.Name()), filepath.Join(plan.FinalPath, newName)); err != nil {
			return fmt.Errorf("cannot rename file %s: %w", item.Name(), err)
		}

		log.Debug("File renamed", slog.String("from", item.Name()), slog.String("to", newName))
	}

	return nil
}

func episodeTitle(metadata string) (string, error) {
	var meta map[string]any
	if err := json.Unmarshal([]byte(metadata), &meta); err != nil {
		return "", fmt.Errorf("%w: cannot parse episode metadata: %w", common.ErrInvalidMetadata, err)
	}

	if meta == nil {
		return "", fmt.Errorf("episode metadata is empty: %w", common.ErrInvalidMetadata)
	}

	title, _ := meta[metadataTitleKey].(string)

	return title, nil
}
