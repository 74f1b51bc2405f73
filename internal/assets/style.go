package assets

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/fsutil"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/observability"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

// StyleRenderer compiles the stylesheet entry into the output directory and
// records the emitted file name in the site state.
type StyleRenderer interface {
	Render(ctx context.Context, s *site.Site, entry string) error
}

// NewStyleRenderer picks the Sass renderer for .scss and .sass entries and the
// built-in CSS renderer otherwise.
func NewStyleRenderer(cfg config.Config) StyleRenderer {
	switch strings.ToLower(filepath.Ext(cfg.Assets.StyleEntry)) {
	case ".scss", ".sass":
		return &SassRenderer{Binary: cfg.Assets.SassBinary}
	default:
		return &CSSRenderer{}
	}
}

// publish finalizes a compiled stylesheet written to <out>/<name>. In
// production it is renamed to <stem>.<hash>.css. Hashed leftovers of earlier
// builds are removed and the emitted name is registered under name.
func publish(ctx context.Context, s *site.Site, name string) error {
	cfg := s.Config()
	plain := filepath.Join(cfg.Out, name)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	emitted := name
	if cfg.Production {
		hash, err := fsutil.HashFile(plain)
		if err != nil {
			return err
		}
		emitted = stem + "." + hash + ".css"
	}
	if err := removeStale(cfg.Out, stem, emitted); err != nil {
		return err
	}
	if emitted != name {
		if err := fsutil.Rename(plain, filepath.Join(cfg.Out, emitted)); err != nil {
			return err
		}
	}

	s.State().SetStyle(name, emitted)
	observability.DebugContext(ctx, "Stylesheet published", logfields.Target(emitted))
	return nil
}

func removeStale(out, stem, keep string) error {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(stem) + `\.[0-9a-f]{8}\.css$`)
	entries, err := os.ReadDir(out)
	if err != nil {
		return fsutil.Wrap("readdir", out, err)
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == keep || !pattern.MatchString(e.Name()) {
			continue
		}
		if err := fsutil.RemoveTree(filepath.Join(out, e.Name()), false, true); err != nil {
			return err
		}
	}
	return nil
}
