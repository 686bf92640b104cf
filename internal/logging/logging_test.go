package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stevenhuff/media-renamer/internal/config"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel(config.LogLevelDebug))
	require.Equal(t, slog.LevelWarn, ParseLevel(config.LogLevelWarn))
	require.Equal(t, slog.LevelError, ParseLevel(config.LogLevelError))
	require.Equal(t, slog.LevelInfo, ParseLevel("anything"))
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, config.LogFormatJSON, &slog.HandlerOptions{}))
	log.Info("Rename folder", slog.String("folder", "x"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "Rename folder", rec["msg"])
	require.Equal(t, "x", rec["folder"])
}

func TestFileOutput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	log, closer := New(&config.LogConfig{Level: config.LogLevelInfo, Format: config.LogFormatText, File: file, MaxSizeMB: 1})
	require.NotNil(t, closer)

	log.Debug("hidden")
	log.Info("visible")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), "visible")
	require.NotContains(t, string(data), "hidden")
}
