// Package naming builds the folder and file names media is renamed to.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	qualityFullHD = " - 1080p"
	qualityHD     = " - 720p"
	quality4K     = " - 4K"

	seasonPadWidth = 2
)

var qualityMarkers = []struct {
	marker string
	tag    string
}{
	{"1080p", qualityFullHD},
	{"720p", qualityHD},
	{"4k", quality4K},
}

// CleanTitle drops every rune that is not a letter, digit, whitespace or
// hyphen and trims the result. Distinct titles may collapse to the same name.
func CleanTitle(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || r == '-' {
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}

// QualityTag returns the resolution suffix found in filename, first match wins.
func QualityTag(filename string) string {
	lower := strings.ToLower(filename)
	for _, q := range qualityMarkers {
		if strings.Contains(lower, q.marker) {
			return q.tag
		}
	}

	return ""
}

func SeasonFolder(season string) string {
	return "Season " + ZeroPad(season, seasonPadWidth)
}

func MovieName(title, year string) string {
	return fmt.Sprintf("%s (%s)", CleanTitle(title), year)
}

func EpisodeBaseName(title, season, episode, episodeTitle string) string {
	name := fmt.Sprintf("%s - s%se%s", CleanTitle(title), ZeroPad(season, seasonPadWidth), ZeroPad(episode, seasonPadWidth))

	if episodeTitle = strings.ReplaceAll(episodeTitle, "/", "-"); episodeTitle != "" {
		name += " - " + episodeTitle
	}

	return name
}

// ZeroPad left-pads s with zeros up to width, keeping a leading sign in front.
// Longer values are returned unchanged.
func ZeroPad(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}

	pad := strings.Repeat("0", width-n)
	if s != "" && (s[0] == '-' || s[0] == '+') {
		return s[:1] + pad + s[1:]
	}

	return pad + s
}

// Ext returns the extension of filename including the dot. Leading dots
// belong to the name, so ".nfo" has no extension.
func Ext(filename string) string {
	base := filepath.Base(filename)
	trimmed := strings.TrimLeft(base, ".")

	i := strings.LastIndexByte(trimmed, '.')
	if i < 0 {
		return ""
	}

	return trimmed[i:]
}

// FileName builds the new name of a media file from the base name, the
// quality tag found in the old name and the old extension.
func FileName(base, oldName string) string {
	return base + QualityTag(oldName) + Ext(oldName)
}
