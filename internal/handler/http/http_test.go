package httphandler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stevenhuff/media-renamer/internal/common"
	"github.com/stevenhuff/media-renamer/internal/entity"
	"github.com/stevenhuff/media-renamer/internal/logging"
	"github.com/stevenhuff/media-renamer/internal/notify"
	"github.com/stevenhuff/media-renamer/internal/service/relocate"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	folders []string
	err     error
}

func (f *fakeQueue) Folders(ctx context.Context) ([]string, error) {
	return f.folders, f.err
}

func (f *fakeQueue) Files(ctx context.Context, folderName string) ([]string, error) {
	if folderName != "Movie" {
		return nil, fmt.Errorf("folder %s does not exist: %w", folderName, common.ErrNotFound)
	}

	return []string{"movie.mkv"}, nil
}

func (f *fakeQueue) Hint(ctx context.Context, folderName string) (*entity.FolderHint, error) {
	if folderName != "Movie" {
		return nil, common.ErrNotFound
	}

	return &entity.FolderHint{Title: "Heat", Year: "1995"}, nil
}

type fakeLookup struct{}

func (fakeLookup) Search(ctx context.Context, query string) (*entity.MediaMetadata, error) {
	if query != "Show" {
		return nil, fmt.Errorf("media not found: %w", common.ErrLookupFailed)
	}

	return &entity.MediaMetadata{
		Title: "Show",
		Year:  "2008–2013",
		Type:  entity.MediaTypeSeries,
		Raw:   map[string]any{"Title": "Show", "Response": "True"},
	}, nil
}

func (fakeLookup) Suggestions(ctx context.Context, query string) ([]entity.Suggestion, error) {
	return nil, common.ErrLookupFailed
}

func (fakeLookup) Episode(ctx context.Context, title, season, episode string) (*entity.MediaMetadata, error) {
	return &entity.MediaMetadata{Title: "Pilot", Raw: map[string]any{"Title": "Pilot", "Season": season}}, nil
}

type fakeRelocate struct {
	req *relocate.Request
}

func (f *fakeRelocate) Relocate(ctx context.Context, req *relocate.Request) (*entity.RelocationPlan, error) {
	f.req = req

	return &entity.RelocationPlan{FinalPath: "/queue/Show/Season 01", IsSeries: true}, nil
}

type fakeMover struct{}

func (fakeMover) Move(ctx context.Context, folderPath string, dest entity.Destination) (string, error) {
	if !dest.Valid() {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidDestination, dest)
	}

	if folderPath == "/queue/Taken" {
		return "", fmt.Errorf("destination /movies/Taken: %w", common.ErrAlreadyExists)
	}

	return "/movies/" + folderPath, nil
}

type fakeCuration struct {
	files []string
}

func (f *fakeCuration) Delete(ctx context.Context, folderName string, files []string) ([]string, error) {
	f.files = files

	return files[:1], nil
}

func (f *fakeCuration) MoveToExtras(ctx context.Context, folderName string, files []string) ([]string, error) {
	return nil, fmt.Errorf("folder %s does not exist: %w", folderName, common.ErrNotFound)
}

func postForm(t *testing.T, h http.Handler, form url.Values) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	return rec.Code, decode(t, rec)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	return out
}

func TestFoldersHandler(t *testing.T) {
	log := logging.Discard()

	rec := httptest.NewRecorder()
	NewFoldersHandler(&fakeQueue{folders: []string{"A", "B"}}, log).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/folders", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	require.Equal(t, true, out["success"])
	require.Equal(t, []any{"A", "B"}, out["folders"])

	rec = httptest.NewRecorder()
	NewFoldersHandler(&fakeQueue{err: fmt.Errorf("media directory: %w", common.ErrNotFound)}, log).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/folders", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	out = decode(t, rec)
	require.Equal(t, false, out["success"])
	require.Equal(t, "NotFound", out["kind"])
	require.Equal(t, []any{}, out["folders"])
}

func TestFilesHandler(t *testing.T) {
	h := NewFilesHandler(&fakeQueue{}, logging.Discard())

	code, out := postForm(t, h, url.Values{"folder_name": {"Movie"}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []any{"movie.mkv"}, out["files"])

	code, out = postForm(t, h, url.Values{"folder_name": {"Other"}})
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, []any{}, out["files"])
}

func TestFolderHintHandler(t *testing.T) {
	code, out := postForm(t, NewFolderHintHandler(&fakeQueue{}, logging.Discard()), url.Values{"folder_name": {"Movie"}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]any{"title": "Heat", "year": "1995"}, out["hint"])
}

func TestSearchHandlers(t *testing.T) {
	log := logging.Discard()

	code, out := postForm(t, NewSearchHandler(fakeLookup{}, log), url.Values{"query": {"Show"}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Show", out["title"])
	require.Equal(t, "2008–2013", out["year"])
	require.Equal(t, true, out["is_series"])
	require.Equal(t, map[string]any{"Title": "Show", "Response": "True"}, out["metadata"])

	code, out = postForm(t, NewSearchHandler(fakeLookup{}, log), url.Values{"query": {"Nope"}})
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, false, out["success"])
	require.Contains(t, out["error"], "media not found")

	code, out = postForm(t, NewSuggestionsHandler(fakeLookup{}, log), url.Values{"query": {"Nope"}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, false, out["success"])
	require.Equal(t, []any{}, out["suggestions"])

	code, out = postForm(t, NewEpisodeHandler(fakeLookup{}, log), url.Values{"title": {"Show"}, "season": {"1"}, "episode": {"3"}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]any{"Title": "Pilot", "Season": "1"}, out["metadata"])
}

func TestRenameHandler(t *testing.T) {
	srv := &fakeRelocate{}

	code, out := postForm(t, NewRenameHandler(srv, logging.Discard()), url.Values{
		"folder_path": {"show.s01e03"},
		"title":       {"Show"},
		"year":        {"2008"},
		"metadata":    {`{"Title":"Pilot"}`},
		"is_series":   {"true"},
		"season":      {"1"},
		"episode":     {"3"},
	})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "/queue/Show/Season 01", out["new_path"])
	require.Equal(t, true, out["is_series"])

	require.Equal(t, &relocate.Request{
		FolderName: "show.s01e03",
		Title:      "Show",
		Year:       "2008",
		Metadata:   `{"Title":"Pilot"}`,
		IsSeries:   true,
		Season:     "1",
		Episode:    "3",
	}, srv.req)
}

func TestMoveHandler(t *testing.T) {
	h := NewMoveHandler(fakeMover{}, logging.Discard())

	code, out := postForm(t, h, url.Values{"folder_path": {"Heat (1995)"}, "destination": {"movie"}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "/movies/Heat (1995)", out["new_path"])

	code, out = postForm(t, h, url.Values{"folder_path": {"Heat (1995)"}, "destination": {"music"}})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "InvalidDestination", out["kind"])

	code, out = postForm(t, h, url.Values{"folder_path": {"/queue/Taken"}, "destination": {"movie"}})
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "AlreadyExists", out["kind"])
}

func TestCurationHandlers(t *testing.T) {
	srv := &fakeCuration{}
	log := logging.Discard()

	code, out := postForm(t, NewDeleteFilesHandler(srv, log), url.Values{"folder_name": {"Movie"}, "files[]": {"a.mkv", "b.mkv"}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []any{"a.mkv"}, out["deleted"])
	require.Equal(t, []string{"a.mkv", "b.mkv"}, srv.files)

	_, _ = postForm(t, NewDeleteFilesHandler(srv, log), url.Values{"folder_name": {"Movie"}, "files": {"c.mkv"}})
	require.Equal(t, []string{"c.mkv"}, srv.files)

	code, out = postForm(t, NewMoveToExtrasHandler(srv, log), url.Values{"folder_name": {"Gone"}, "files[]": {"a.mkv"}})
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, false, out["success"])
}

func TestIndexAndHealth(t *testing.T) {
	log := logging.Discard()

	rec := httptest.NewRecorder()
	NewIndexHandler(log).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<title>Media Renamer</title>")

	hub := notify.NewHub(1, log)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	rec = httptest.NewRecorder()
	NewHealthHandler(hub, log).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	out := decode(t, rec)
	require.Equal(t, true, out["success"])
	require.Equal(t, float64(1), out["subscribers"])
}

func TestFormatEvent(t *testing.T) {
	got := string(formatEvent(entity.Event{ID: "42", Type: entity.EventError, Message: "first\r\nsecond"}))
	require.Equal(t, "id: 42\ndata: error:first\ndata: second\n\n", got)

	got = string(formatEvent(entity.Event{Type: entity.EventInfo, Message: "Moving Heat"}))
	require.Equal(t, "data: info:Moving Heat\n\n", got)
}

func TestStreamHandler(t *testing.T) {
	hub := notify.NewHub(8, logging.Discard())
	srv := httptest.NewServer(NewStreamHandler(hub, time.Minute, logging.Discard()))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(entity.EventInfo, "Renaming Movie...")
	hub.Publish(entity.EventSuccess, "Renamed Movie")

	sc := bufio.NewScanner(resp.Body)
	var data []string
	for len(data) < 2 && sc.Scan() {
		if line, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
			data = append(data, line)
		}
	}
	require.Equal(t, []string{"info:Renaming Movie...", "success:Renamed Movie"}, data)

	hub.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}
