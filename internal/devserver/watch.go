package devserver

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// watchRoot is a watched directory and the rebuild its changes trigger.
type watchRoot struct {
	dir       string
	kind      Kind
	recursive bool
}

// watchRoots lists the watched directories: the styles tree, the pages
// directory, and everything else a full build reads (layout overrides,
// images, scripts and the root files next to them).
func watchRoots(cfg config.Config) []watchRoot {
	roots := []watchRoot{
		{dir: cfg.Assets.Styles, kind: KindStyles, recursive: true},
		{dir: cfg.Content.Pages, kind: KindPages},
		{dir: cfg.Templates.Dir, kind: KindFull, recursive: true},
		{dir: cfg.Assets.Images, kind: KindFull, recursive: true},
		{dir: cfg.Assets.Scripts, kind: KindFull, recursive: true},
		{dir: cfg.Assets.Root, kind: KindFull},
	}
	out := roots[:0]
	for _, r := range roots {
		if r.dir == "" {
			continue
		}
		if abs, err := filepath.Abs(r.dir); err == nil {
			r.dir = abs
		}
		out = append(out, r)
	}
	return out
}

// classify returns the most specific root covering path. A non-recursive
// root only covers its direct children.
func classify(roots []watchRoot, path string) (watchRoot, bool) {
	var (
		best  watchRoot
		found bool
	)
	for _, r := range roots {
		if !covers(r, path) {
			continue
		}
		if !found || len(r.dir) > len(best.dir) {
			best, found = r, true
		}
	}
	return best, found
}

func covers(r watchRoot, path string) bool {
	if r.recursive {
		rel, err := filepath.Rel(r.dir, path)
		return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
	}
	return filepath.Dir(path) == r.dir
}

// within reports whether path is dir or below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// addWatches registers r with w. Missing directories are skipped; a
// recursive root also watches every non-hidden subdirectory except skip.
func addWatches(w *fsnotify.Watcher, r watchRoot, skip string) {
	info, err := os.Stat(r.dir)
	if err != nil || !info.IsDir() {
		slog.Debug("Watch directory missing, skipping", logfields.Path(r.dir))
		return
	}
	if !r.recursive {
		if err := w.Add(r.dir); err != nil {
			slog.Warn("Failed to watch directory", logfields.Path(r.dir), logfields.Error(err))
		}
		return
	}
	addDirsRecursive(w, r.dir, skip)
}

func addDirsRecursive(w *fsnotify.Watcher, root, skip string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || (skip != "" && within(skip, path))) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			slog.Warn("Failed to watch directory", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent filters editor backups, swap files and other noise.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, "~"):
		return true
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
