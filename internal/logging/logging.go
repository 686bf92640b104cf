package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/stevenhuff/media-renamer/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the application logger. The returned closer releases the log
// file, it is nil when logging goes to stderr only.
func New(cfg *config.LogConfig) (*slog.Logger, io.Closer) {
	lo := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer
	)

	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxFiles,
			MaxAge:     cfg.MaxAgeDays,
		}
		w = io.MultiWriter(os.Stderr, lj)
		closer = lj
	}

	return slog.New(NewHandler(w, cfg.Format, lo)), closer
}

func NewHandler(w io.Writer, format string, lo *slog.HandlerOptions) slog.Handler {
	if format == config.LogFormatJSON {
		return slog.NewJSONHandler(w, lo)
	}

	return slog.NewTextHandler(w, lo)
}

func ParseLevel(level string) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	}

	return slog.LevelInfo
}

// Discard is a logger for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}
