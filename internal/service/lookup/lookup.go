package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stevenhuff/media-renamer/internal/common"
	"github.com/stevenhuff/media-renamer/internal/entity"
)

const (
	serviceName    = "lookup"
	maxSuggestions = 5
)

type MetadataClient interface {
	Search(ctx context.Context, query string) ([]entity.Suggestion, error)
	Title(ctx context.Context, title string) (*entity.MediaMetadata, error)
	Episode(ctx context.Context, title, season, episode string) (*entity.MediaMetadata, error)
}

type lookupService struct {
	client MetadataClient
	log    *slog.Logger
}

func NewLookupService(client MetadataClient, log *slog.Logger) *lookupService {
	return &lookupService{
		client: client,
		log:    log.With(slog.String("service", serviceName)),
	}
}

// Search returns the metadata of the title that best matches query.
func (s *lookupService) Search(ctx context.Context, query string) (*entity.MediaMetadata, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", common.ErrLookupFailed)
	}

	meta, err := s.client.Title(ctx, query)
	if err != nil {
		s.log.Info("Media not found", slog.String("query", query), slog.Any("error", err))

		return nil, fmt.Errorf("media not found: %w", err)
	}

	return meta, nil
}

// Suggestions returns at most five free-text search hits. A failed search is
// reported as no suggestions.
func (s *lookupService) Suggestions(ctx context.Context, query string) ([]entity.Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", common.ErrLookupFailed)
	}

	suggestions, err := s.client.Search(ctx, query)
	if err != nil {
		s.log.Debug("No suggestions", slog.String("query", query), slog.Any("error", err))

		return nil, err
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	return suggestions, nil
}

func (s *lookupService) Episode(ctx context.Context, title, season, episode string) (*entity.MediaMetadata, error) {
	title = strings.TrimSpace(title)
	season = strings.TrimSpace(season)
	episode = strings.TrimSpace(episode)

	if title == "" || season == "" || episode == "" {
		return nil, fmt.Errorf("%w: title, season and episode are required", common.ErrLookupFailed)
	}

	meta, err := s.client.Episode(ctx, title, season, episode)
	if err != nil {
		s.log.Info("Episode not found", slog.String("title", title), slog.String("season", season),
			slog.String("episode", episode), slog.Any("error", err))

		return nil, fmt.Errorf("episode not found: %w", err)
	}

	return meta, nil
}
