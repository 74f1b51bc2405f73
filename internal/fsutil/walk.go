package fsutil

import (
	"os"
	"path/filepath"
	"slices"
)

// MatchAll makes Walk include every file regardless of extension.
const MatchAll = "*"

// Walk lists files below dir whose extension is exactly "."+ext (MatchAll for
// any). Subdirectories are descended only when recurse is set. Paths are
// absolute when dir is. Callers must not depend on the order.
func Walk(dir, ext string, recurse bool) ([]string, error) {
	var out []string
	err := walk(dir, recurse, func(path string) bool {
		return ext == MatchAll || filepath.Ext(path) == "."+ext
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAllExcept recursively lists files below dir whose extension is not in
// excluded. Extensions carry their leading dot, and "" selects extension-less
// files.
func ListAllExcept(dir string, excluded []string) ([]string, error) {
	var out []string
	err := walk(dir, true, func(path string) bool {
		return !slices.Contains(excluded, filepath.Ext(path))
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func walk(dir string, recurse bool, include func(string) bool, out *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fsError("readdir", dir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if !recurse {
				continue
			}
			if err := walk(path, recurse, include, out); err != nil {
				return err
			}
			continue
		}
		if include(path) {
			*out = append(*out, path)
		}
	}
	return nil
}
