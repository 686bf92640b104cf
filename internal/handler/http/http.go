package httphandler

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stevenhuff/media-renamer/internal/common"
	"github.com/stevenhuff/media-renamer/internal/entity"
	"github.com/stevenhuff/media-renamer/internal/notify"
	"github.com/stevenhuff/media-renamer/internal/service/relocate"
)

const (
	maxFormSize       = 1 << 20
	defaultKeepAlive  = 30 * time.Second
	formFolderName    = "folder_name"
	formFolderPath    = "folder_path"
	formQuery         = "query"
	formTitle         = "title"
	formYear          = "year"
	formMetadata      = "metadata"
	formIsSeries      = "is_series"
	formSeason        = "season"
	formEpisode       = "episode"
	formDestination   = "destination"
	formFiles         = "files"
	formFilesBrackets = "files[]"
)

//go:embed web/index.html
var indexPage []byte

type QueueService interface {
	Folders(ctx context.Context) ([]string, error)
	Files(ctx context.Context, folderName string) ([]string, error)
	Hint(ctx context.Context, folderName string) (*entity.FolderHint, error)
}

type LookupService interface {
	Search(ctx context.Context, query string) (*entity.MediaMetadata, error)
	Suggestions(ctx context.Context, query string) ([]entity.Suggestion, error)
	Episode(ctx context.Context, title, season, episode string) (*entity.MediaMetadata, error)
}

type RelocateService interface {
	Relocate(ctx context.Context, req *relocate.Request) (*entity.RelocationPlan, error)
}

type MoverService interface {
	Move(ctx context.Context, folderPath string, dest entity.Destination) (string, error)
}

type CurationService interface {
	Delete(ctx context.Context, folderName string, files []string) ([]string, error)
	MoveToExtras(ctx context.Context, folderName string, files []string) ([]string, error)
}

type EventSource interface {
	Subscribe() *notify.Subscription
	Unsubscribe(s *notify.Subscription)
}

type SubscriberCounter interface {
	Subscribers() int
}

type payload map[string]any

func NewIndexHandler(log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "IndexHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(indexPage); err != nil {
			log.Debug("Cannot write page", slog.Any("error", err))
		}
	}
}

func NewHealthHandler(src SubscriberCounter, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "HealthHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, payload{"success": true, "subscribers": src.Subscribers()}, log)
	}
}

func NewFoldersHandler(srv QueueService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "FoldersHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		folders, err := srv.Folders(r.Context())
		if err != nil {
			writeError(w, err, payload{"folders": []string{}}, log)

			return
		}

		writeJSON(w, http.StatusOK, payload{"success": true, "folders": folders}, log)
	}
}

func NewFilesHandler(srv QueueService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "FilesHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		if !parseForm(w, r, log) {
			return
		}

		files, err := srv.Files(r.Context(), r.FormValue(formFolderName))
		if err != nil {
			writeError(w, err, payload{"files": []string{}}, log)

			return
		}

		writeJSON(w, http.StatusOK, payload{"success": true, "files": files}, log)
	}
}

func NewFolderHintHandler(srv QueueService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "FolderHintHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		if !parseForm(w, r, log) {
			return
		}

		hint, err := srv.Hint(r.Context(), r.FormValue(formFolderName))
		if err != nil {
			writeError(w, err, nil, log)

			return
		}

		writeJSON(w, http.StatusOK, payload{"success": true, "hint": hint}, log)
	}
}

func NewSearchHandler(srv LookupService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "SearchHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		if !parseForm(w, r, log) {
			return
		}

		meta, err := srv.Search(r.Context(), r.FormValue(formQuery))
		if err != nil {
			writeError(w, err, nil, log)

			return
		}

		writeJSON(w, http.StatusOK, payload{
			"success":   true,
			"title":     meta.Title,
			"year":      meta.Year,
			"type":      meta.Type,
			"metadata":  meta.Raw,
			"is_series": meta.IsSeries(),
		}, log)
	}
}

// NewSuggestionsHandler answers with an empty list instead of an error when
// nothing matches, the page just shows no suggestions.
func NewSuggestionsHandler(srv LookupService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "SuggestionsHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		if !parseForm(w, r, log) {
			return
		}

		suggestions, err := srv.Suggestions(r.Context(), r.FormValue(formQuery))
		if err != nil {
			writeJSON(w, http.StatusOK, payload{"success": false, "suggestions": []entity.Suggestion{}}, log)

			return
		}

		writeJSON(w, http.StatusOK, payload{"success": true, "suggestions": suggestions}, log)
	}
}

func NewEpisodeHandler(srv LookupService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "EpisodeHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		if !parseForm(w, r, log) {
			return
		}

		meta, err := srv.Episode(r.Context(), r.FormValue(formTitle), r.FormValue(formSeason), r.FormValue(formEpisode))
		if err != nil {
			writeError(w, err, nil, log)

			return
		}

		writeJSON(w, http.StatusOK, payload{"success": true, "metadata": meta.Raw}, log)
	}
}

func NewRenameHandler(srv RelocateService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "RenameHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		if !parseForm(w, r, log) {
			return
		}

		req := &relocate.Request{
			FolderName: r.FormValue(formFolderPath),
			Title:      r.FormValue(formTitle),
			Year:       r.FormValue(formYear),
			Metadata:   r.FormValue(formMetadata),
			IsSeries:   r.FormValue(formIsSeries) == "true",
			Season:     r.FormValue(formSeason),
			Episode:    r.FormValue(formEpisode),
		}

		plan, err := srv.Relocate(r.Context(), req)
		if err != nil {
			writeError(w, err, nil, log)

			return
		}

		writeJSON(w, http.StatusOK, payload{"success": true, "new_path": plan.FinalPath, "is_series": req.IsSeries}, log)
	}
}

func NewMoveHandler(srv MoverService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "MoveHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		if !parseForm(w, r, log) {
			return
		}

		target, err := srv.Move(r.Context(), r.FormValue(formFolderPath), entity.Destination(r.FormValue(formDestination)))
		if err != nil {
			writeError(w, err, nil, log)

			return
		}

		writeJSON(w, http.StatusOK, payload{"success": true, "new_path": target}, log)
	}
}

func NewDeleteFilesHandler(srv CurationService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "DeleteFilesHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		if !parseForm(w, r, log) {
			return
		}

		deleted, err := srv.Delete(r.Context(), r.FormValue(formFolderName), formFileList(r))
		if err != nil {
			writeError(w, err, nil, log)

			return
		}

		writeJSON(w, http.StatusOK, payload{"success": true, "deleted": deleted}, log)
	}
}

func NewMoveToExtrasHandler(srv CurationService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "MoveToExtrasHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		if !parseForm(w, r, log) {
			return
		}

		moved, err := srv.MoveToExtras(r.Context(), r.FormValue(formFolderName), formFileList(r))
		if err != nil {
			writeError(w, err, nil, log)

			return
		}

		writeJSON(w, http.StatusOK, payload{"success": true, "moved": moved}, log)
	}
}

// NewStreamHandler pushes events as server-sent events until the client goes
// away or the source closes the subscription.
func NewStreamHandler(src EventSource, keepAlive time.Duration, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "StreamHandler"))
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)

			return
		}

		sub := src.Subscribe()
		defer src.Unsubscribe(sub)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		log.Debug("Client connected", slog.String("remote", r.RemoteAddr))
		defer log.Debug("Client disconnected", slog.String("remote", r.RemoteAddr))

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case e, ok := <-sub.C:
				if !ok {
					return
				}

				if _, err := w.Write(formatEvent(e)); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// formatEvent renders e as "type:message". Every line of a multi-line message
// gets its own data field.
func formatEvent(e entity.Event) []byte {
	var b strings.Builder

	if e.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", e.ID)
	}

	text := strings.ReplaceAll(string(e.Type)+":"+e.Message, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	return []byte(b.String())
}

func parseForm(w http.ResponseWriter, r *http.Request, log *slog.Logger) bool {
	err := r.ParseMultipartForm(maxFormSize)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return true
	}

	log.Debug("Cannot parse form", slog.Any("error", err))
	writeJSON(w, http.StatusBadRequest, payload{"success": false, "error": "Bad request"}, log)

	return false
}

func formFileList(r *http.Request) []string {
	if files := r.Form[formFilesBrackets]; len(files) > 0 {
		return files
	}

	return r.Form[formFiles]
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrLookupFailed):
		return http.StatusNotFound
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrInvalidDestination),
		errors.Is(err, common.ErrInvalidMetadata),
		errors.Is(err, common.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error, extra payload, log *slog.Logger) {
	p := payload{"success": false, "error": err.Error(), "kind": common.Kind(err)}
	for k, v := range extra {
		p[k] = v
	}

	writeJSON(w, statusFor(err), p, log)
}

func writeJSON(w http.ResponseWriter, status int, p payload, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error("Cannot encode response", slog.Any("error", err))
	}
}
