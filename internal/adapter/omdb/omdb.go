// Package omdb is a small client for the OMDb API (https://www.omdbapi.com).
package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stevenhuff/media-renamer/internal/common"
	"github.com/stevenhuff/media-renamer/internal/config"
	"github.com/stevenhuff/media-renamer/internal/entity"
	"golang.org/x/time/rate"
)

const (
	paramAPIKey  = "apikey"
	paramSearch  = "s"
	paramTitle   = "t"
	paramPlot    = "plot"
	paramSeason  = "Season"
	paramEpisode = "Episode"

	plotShort      = "short"
	responseTrue   = "True"
	maxBodySize    = 1 << 20
	rateBurst      = 1
	defaultTimeout = 10 * time.Second
)

type searchResponse struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
	Search   []struct {
		Title string `json:"Title"`
		Year  string `json:"Year"`
		Type  string `json:"Type"`
	} `json:"Search"`
}

type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	limiter *rate.Limiter

	log *slog.Logger
}

func NewClient(cfg *config.OMDBConfig, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		hc:      &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), rateBurst),
		log:     log.With(slog.String("item", "OMDBClient")),
	}
}

// Search runs a free-text search and returns every hit of the first page.
func (c *Client) Search(ctx context.Context, query string) ([]entity.Suggestion, error) {
	body, err := c.get(ctx, url.Values{paramSearch: {query}})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: cannot decode search response: %w", common.ErrLookupFailed, err)
	}

	if resp.Response != responseTrue {
		return nil, fmt.Errorf("%w: %s", common.ErrLookupFailed, responseError(resp.Error))
	}

	suggestions := make([]entity.Suggestion, 0, len(resp.Search))
	for _, item := range resp.Search {
		suggestions = append(suggestions, entity.Suggestion{Title: item.Title, Year: item.Year, Type: item.Type})
	}

	return suggestions, nil
}

// Title looks up a movie or series by exact title.
func (c *Client) Title(ctx context.Context, title string) (*entity.MediaMetadata, error) {
	return c.lookup(ctx, url.Values{paramTitle: {title}, paramPlot: {plotShort}})
}

// Episode looks up a single episode of the series title.
func (c *Client) Episode(ctx context.Context, title, season, episode string) (*entity.MediaMetadata, error) {
	meta, err := c.lookup(ctx, url.Values{paramTitle: {title}, paramSeason: {season}, paramEpisode: {episode}})
	if err != nil {
		return nil, err
	}

	meta.EpisodeTitle = meta.Title

	return meta, nil
}

func (c *Client) lookup(ctx context.Context, params url.Values) (*entity.MediaMetadata, error) {
	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	return ParseMetadata(body)
}

// ParseMetadata turns an OMDb title or episode document into MediaMetadata.
func ParseMetadata(body []byte) (*entity.MediaMetadata, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: cannot decode response: %w", common.ErrLookupFailed, err)
	}

	if str(raw, "Response") != responseTrue {
		return nil, fmt.Errorf("%w: %s", common.ErrLookupFailed, responseError(str(raw, "Error")))
	}

	return &entity.MediaMetadata{
		Title:   str(raw, "Title"),
		Year:    str(raw, "Year"),
		Type:    str(raw, "Type"),
		Plot:    str(raw, "Plot"),
		Season:  str(raw, "Season"),
		Episode: str(raw, "Episode"),
		Raw:     raw,
	}, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrLookupFailed, err)
	}

	logParams := make([]any, 0, len(params))
	for k, v := range params {
		logParams = append(logParams, slog.Any(k, v))
	}
	c.log.Debug("Request", logParams...)

	params.Set(paramAPIKey, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot build request: %w", common.ErrLookupFailed, err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		// url.Error carries the full URL, api key included.
		c.log.Error("Request failed", slog.String("error", redact(err.Error(), c.apiKey)))

		return nil, fmt.Errorf("%w: request failed", common.ErrLookupFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", common.ErrLookupFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read response: %w", common.ErrLookupFailed, err)
	}

	return body, nil
}

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}

	return ""
}

func responseError(msg string) string {
	if msg == "" {
		return "not found"
	}

	return msg
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}

	return strings.ReplaceAll(s, url.QueryEscape(secret), "***")
}
