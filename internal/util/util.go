package util

import (
	"path/filepath"
	"strings"
)

// IsPlainName reports whether name is a single path element that stays inside
// the directory it is joined to.
func IsPlainName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}

// IsHidden reports whether name is a dot file.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Within reports whether path is root itself or lies below it.
func Within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
