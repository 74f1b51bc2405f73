package assets

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/fsutil"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

// CSSRenderer bundles a plain CSS entry: local @import rules are inlined and,
// in production, the result is minified.
type CSSRenderer struct{}

var importRule = regexp.MustCompile(`@import\s+(?:url\(\s*)?["']([^"']+)["']\s*\)?\s*([^;]*);`)

func (r *CSSRenderer) Render(ctx context.Context, s *site.Site, entry string) error {
	cfg := s.Config()
	css, err := bundle(entry, map[string]bool{})
	if err != nil {
		return err
	}
	if cfg.Production {
		css = MinifyCSS(css)
	}

	name := cfg.Assets.StyleName()
	if err := fsutil.WriteFile(filepath.Join(cfg.Out, name), []byte(css)); err != nil {
		return err
	}
	return publish(ctx, s, name)
}

// bundle reads path and replaces each local, unconditional @import with the
// imported file's bundled content. Remote imports and imports carrying a media
// query are kept as written.
func bundle(path string, active map[string]bool) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fsutil.Wrap("abs", path, err)
	}
	if active[abs] {
		return "", styleError(nil, path, "circular @import")
	}
	active[abs] = true
	defer delete(active, abs)

	data, err := fsutil.ReadFile(abs)
	if err != nil {
		return "", err
	}

	var failure error
	out := importRule.ReplaceAllStringFunc(string(data), func(rule string) string {
		if failure != nil {
			return rule
		}
		m := importRule.FindStringSubmatch(rule)
		target, media := m[1], strings.TrimSpace(m[2])
		if media != "" || isRemote(target) {
			return rule
		}
		inlined, err := bundle(filepath.Join(filepath.Dir(abs), filepath.FromSlash(target)), active)
		if err != nil {
			failure = err
			return rule
		}
		return strings.TrimRight(inlined, "\n")
	})
	if failure != nil {
		return "", failure
	}
	return out, nil
}

func isRemote(target string) bool {
	return strings.HasPrefix(target, "//") || strings.Contains(target, "://") || strings.HasPrefix(target, "data:")
}

var cssMinifier = func() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	return m
}()

// MinifyCSS minifies a stylesheet. Input the minifier rejects is returned
// unchanged.
func MinifyCSS(src string) string {
	out, err := cssMinifier.String("text/css", src)
	if err != nil {
		slog.Debug("CSS minification failed, keeping source", logfields.Error(err))
		return src
	}
	return out
}

func styleError(cause error, path, message string) error {
	var b *ferrors.ErrorBuilder
	if cause != nil {
		b = ferrors.WrapError(cause, ferrors.CategoryRender, message)
	} else {
		b = ferrors.RenderError(message)
	}
	err := b.WithContext("path", path).Build()
	slog.Error("Stylesheet render failed", logfields.Path(path), logfields.Error(err))
	return err
}
