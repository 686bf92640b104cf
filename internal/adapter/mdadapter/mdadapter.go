// Package mdadapter reads the optional markdown hint file of a queue folder.
//
// A hint file carries naming information in YAML frontmatter and free notes
// in its body:
//
//	---
//	title: The Office
//	type: series
//	season: 2
//	episode: 4
//	---
//	Ripped from the UK box set.
package mdadapter

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/stevenhuff/media-renamer/internal/common"
	"github.com/stevenhuff/media-renamer/internal/entity"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

const (
	maxHintSize = 64 << 10
)

type mdAdapter struct {
	fs       afero.Fs
	fileName string
	md       goldmark.Markdown

	log *slog.Logger
}

func NewMDAdapter(fs afero.Fs, fileName string, log *slog.Logger) *mdAdapter {
	md := goldmark.New(
		goldmark.WithExtensions(
			&frontmatter.Extender{},
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &mdAdapter{
		fs:       fs,
		fileName: fileName,
		md:       md,
		log:      log.With(slog.String("item", "MDAdapter")),
	}
}

// Hint parses the hint file inside folderPath. The body is rendered to HTML,
// raw HTML in it is escaped by goldmark's default renderer.
func (a *mdAdapter) Hint(folderPath string) (*entity.FolderHint, error) {
	fileName := filepath.Join(folderPath, a.fileName)

	fi, err := a.fs.Stat(fileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("hint file %s: %w", fileName, common.ErrNotFound)
		}

		return nil, common.IOFailure(err)
	}

	if fi.Size() > maxHintSize {
		return nil, fmt.Errorf("hint file %s is too large (%d bytes)", fileName, fi.Size())
	}

	src, err := afero.ReadFile(a.fs, fileName)
	if err != nil {
		return nil, common.IOFailure(err)
	}

	pc := parser.NewContext()

	var buf bytes.Buffer
	if err := a.md.Convert(src, &buf, parser.WithContext(pc)); err != nil {
		return nil, fmt.Errorf("cannot convert markdown: %w", err)
	}

	hint := &entity.FolderHint{}
	if fm := frontmatter.Get(pc); fm != nil {
		if err := fm.Decode(hint); err != nil {
			return nil, fmt.Errorf("cannot decode frontmatter: %w", err)
		}
	}

	hint.Type = strings.ToLower(strings.TrimSpace(hint.Type))
	hint.ContentHTML = strings.TrimSpace(buf.String())

	a.log.Debug("Read hint", slog.String("path", fileName), slog.String("title", hint.Title))

	return hint, nil
}
