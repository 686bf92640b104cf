package fsadapter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"github.com/stevenhuff/media-renamer/internal/common"
	"github.com/stevenhuff/media-renamer/internal/util"
)

const (
	dirPerm = 0o755
)

type fsAdapter struct {
	fs     afero.Fs
	rename func(oldname, newname string) error

	log *slog.Logger
}

func NewFSAdapter(log *slog.Logger) *fsAdapter {
	return NewFSAdapterWithFS(afero.NewOsFs(), log)
}

func NewFSAdapterWithFS(fs afero.Fs, log *slog.Logger) *fsAdapter {
	return &fsAdapter{
		fs:     fs,
		rename: fs.Rename,
		log:    log.With(slog.String("item", "FSAdapter")),
	}
}

// Fs exposes the underlying filesystem to adapters that read file content.
func (a *fsAdapter) Fs() afero.Fs {
	return a.fs
}

// ListDirs returns the names of visible directories directly under root.
func (a *fsAdapter) ListDirs(root string) ([]string, error) {
	return a.list(root, true)
}

// ListFiles returns the names of visible regular files directly under dir.
func (a *fsAdapter) ListFiles(dir string) ([]string, error) {
	return a.list(dir, false)
}

func (a *fsAdapter) list(dir string, dirs bool) ([]string, error) {
	entries, err := afero.ReadDir(a.fs, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("directory %s: %w", dir, common.ErrNotFound)
		}

		return nil, common.IOFailure(err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if util.IsHidden(entry.Name()) {
			continue
		}

		if dirs && entry.IsDir() || !dirs && entry.Mode().IsRegular() {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}

// Entries returns every entry directly under dir, hidden ones included.
func (a *fsAdapter) Entries(dir string) ([]os.FileInfo, error) {
	entries, err := afero.ReadDir(a.fs, dir)
	if err != nil {
		return nil, common.IOFailure(err)
	}

	return entries, nil
}

func (a *fsAdapter) Exists(path string) bool {
	if path == "" {
		return false
	}

	_, err := a.fs.Stat(path)

	return err == nil
}

func (a *fsAdapter) IsDir(path string) bool {
	fi, err := a.fs.Stat(path)

	return err == nil && fi.IsDir()
}

func (a *fsAdapter) IsRegularFile(path string) bool {
	fi, err := a.fs.Stat(path)

	return err == nil && fi.Mode().IsRegular()
}

func (a *fsAdapter) MkdirAll(path string) error {
	if err := a.fs.MkdirAll(path, dirPerm); err != nil {
		return common.IOFailure(err)
	}

	return nil
}

func (a *fsAdapter) Rename(oldPath, newPath string) error {
	if err := a.rename(oldPath, newPath); err != nil {
		return common.IOFailure(err)
	}

	a.log.Debug("Rename", slog.String("from", oldPath), slog.String("to", newPath))

	return nil
}

func (a *fsAdapter) Remove(path string) error {
	if err := a.fs.Remove(path); err != nil {
		return common.IOFailure(err)
	}

	return nil
}

// RemoveIfEmpty deletes dir when nothing is left in it. A non-empty dir is
// left in place and reported as not removed.
func (a *fsAdapter) RemoveIfEmpty(dir string) (bool, error) {
	empty, err := afero.IsEmpty(a.fs, dir)
	if err != nil {
		return false, common.IOFailure(err)
	}

	if !empty {
		return false, nil
	}

	if err := a.fs.Remove(dir); err != nil {
		return false, common.IOFailure(err)
	}

	return true, nil
}

// MoveTree moves src to dst. A rename that fails because src and dst are on
// different devices falls back to a recursive copy followed by removal of src.
func (a *fsAdapter) MoveTree(src, dst string) error {
	err := a.rename(src, dst)
	if err == nil {
		return nil
	}

	if !isEXDEV(err) {
		return common.IOFailure(err)
	}

	a.log.Info("Cross device move, copying", slog.String("from", src), slog.String("to", dst))

	if err := a.copyTree(src, dst); err != nil {
		return common.IOFailure(fmt.Errorf("copy %s to %s: %w", src, dst, err))
	}

	if err := a.fs.RemoveAll(src); err != nil {
		return common.IOFailure(fmt.Errorf("remove %s after copy: %w", src, err))
	}

	return nil
}

func (a *fsAdapter) copyTree(src, dst string) error {
	return afero.Walk(a.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			return a.fs.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode().IsRegular():
			return a.copyFile(path, target, info.Mode().Perm())
		}

		a.log.Warn("Skip non regular file", slog.String("path", path))

		return nil
	})
}

func (a *fsAdapter) copyFile(src, dst string, perm os.FileMode) error {
	in, err := a.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := a.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()

		return err
	}

	return out.Close()
}
