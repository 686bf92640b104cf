package mover

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stevenhuff/media-renamer/internal/adapter/fsadapter"
	"github.com/stevenhuff/media-renamer/internal/common"
	"github.com/stevenhuff/media-renamer/internal/entity"
	"github.com/stevenhuff/media-renamer/internal/logging"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	types []entity.EventType
}

func (r *recorder) Publish(t entity.EventType, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types = append(r.types, t)
}

type failingRenameFs struct {
	afero.Fs
}

func (f *failingRenameFs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
}

func setup(t *testing.T, files ...string) (afero.Fs, *moverService, *recorder) {
	t.Helper()

	return setupWithFs(t, afero.NewBasePathFs(afero.NewOsFs(), t.TempDir()), files...)
}

func setupWithFs(t *testing.T, fs afero.Fs, files ...string) (afero.Fs, *moverService, *recorder) {
	t.Helper()

	for _, dir := range []string{"/queue", "/movies", "/shows"} {
		require.NoError(t, fs.MkdirAll(dir, 0o755))
	}
	for _, name := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(name), 0o755))
		require.NoError(t, afero.WriteFile(fs, name, []byte(name), 0o644))
	}

	rec := &recorder{}
	log := logging.Discard()

	return fs, NewMoverService("/queue", "/movies", "/shows", fsadapter.NewFSAdapterWithFS(fs, log), rec, log), rec
}

func TestMove(t *testing.T) {
	testCases := []struct {
		name       string
		folderPath string
		dest       entity.Destination
		expected   string
	}{
		{name: "absolute movie", folderPath: "/queue/Movie (2020)", dest: entity.DestinationMovie, expected: "/movies/Movie (2020)"},
		{name: "relative movie", folderPath: "Movie (2020)", dest: entity.DestinationMovie, expected: "/movies/Movie (2020)"},
		{name: "show", folderPath: "/queue/Movie (2020)", dest: entity.DestinationShow, expected: "/shows/Movie (2020)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs, m, rec := setup(t, "/queue/Movie (2020)/Movie (2020).mkv")

			target, err := m.Move(context.Background(), tc.folderPath, tc.dest)
			require.NoError(t, err)
			require.Equal(t, tc.expected, target)

			ok, err := afero.Exists(fs, filepath.Join(tc.expected, "Movie (2020).mkv"))
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = afero.Exists(fs, "/queue/Movie (2020)")
			require.NoError(t, err)
			require.False(t, ok)

			require.Equal(t, []entity.EventType{entity.EventInfo, entity.EventSuccess}, rec.types)
		})
	}
}

func TestMoveFailures(t *testing.T) {
	testCases := []struct {
		name        string
		folderPath  string
		dest        entity.Destination
		expectError error
	}{
		{name: "invalid destination", folderPath: "/queue/Movie (2020)", dest: "music", expectError: common.ErrInvalidDestination},
		{name: "missing source", folderPath: "/queue/Other", dest: entity.DestinationMovie, expectError: common.ErrNotFound},
		{name: "already exists", folderPath: "/queue/Movie (2020)", dest: entity.DestinationShow, expectError: common.ErrAlreadyExists},
		{name: "outside queue", folderPath: "/movies/Movie (2020)", dest: entity.DestinationShow, expectError: common.ErrInvalidName},
		{name: "traversal", folderPath: "../movies/x", dest: entity.DestinationShow, expectError: common.ErrInvalidName},
		{name: "queue root", folderPath: "/queue", dest: entity.DestinationMovie, expectError: common.ErrInvalidName},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs, m, rec := setup(t,
				"/queue/Movie (2020)/Movie (2020).mkv",
				"/shows/Movie (2020)/old.mkv",
			)

			_, err := m.Move(context.Background(), tc.folderPath, tc.dest)
			require.ErrorIs(t, err, tc.expectError)
			require.Equal(t, []entity.EventType{entity.EventError}, rec.types)

			ok, err := afero.Exists(fs, "/queue/Movie (2020)/Movie (2020).mkv")
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = afero.Exists(fs, "/shows/Movie (2020)/Movie (2020).mkv")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestMoveTreeFailure(t *testing.T) {
	fs, m, rec := setupWithFs(t,
		&failingRenameFs{Fs: afero.NewBasePathFs(afero.NewOsFs(), t.TempDir())},
		"/queue/Movie (2020)/Movie (2020).mkv",
	)

	_, err := m.Move(context.Background(), "Movie (2020)", entity.DestinationMovie)
	require.ErrorIs(t, err, common.ErrIOFailure)
	require.ErrorIs(t, err, os.ErrPermission)
	require.Equal(t, []entity.EventType{entity.EventInfo, entity.EventError}, rec.types)

	ok, err := afero.Exists(fs, "/queue/Movie (2020)/Movie (2020).mkv")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = afero.Exists(fs, "/movies/Movie (2020)")
	require.NoError(t, err)
	require.False(t, ok)
}
