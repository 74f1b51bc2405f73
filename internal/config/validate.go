package config

import (
	"net/url"
	"path/filepath"
	"strings"

	foundationerrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// Validate checks structural constraints that would make a build unsafe or
// ambiguous. The first violation is returned as a validation error.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Out) == "" {
		return invalid("out must not be empty", "out", cfg.Out)
	}

	if err := ValidateOut(cfg); err != nil {
		return err
	}

	if len(cfg.Content.Extensions) == 0 {
		return invalid("content.extensions must list at least one extension", "content.extensions", "")
	}
	for _, ext := range cfg.Content.Extensions {
		if ext == "" || strings.HasPrefix(ext, ".") {
			return invalid("content extensions are written without a leading dot", "content.extensions", ext)
		}
	}

	if cfg.Build.Concurrency < 1 {
		return invalid("build.concurrency must be at least 1", "build.concurrency", cfg.Build.Concurrency)
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return invalid("server.port out of range", "server.port", cfg.Server.Port)
	}
	if cfg.Server.LiveReloadPort < 0 || cfg.Server.LiveReloadPort > 65535 {
		return invalid("server.livereload_port out of range", "server.livereload_port", cfg.Server.LiveReloadPort)
	}
	if cfg.Server.Port != 0 && cfg.Server.Port == cfg.Server.LiveReloadPort {
		return invalid("server.port and server.livereload_port must differ", "server.port", cfg.Server.Port)
	}

	if cfg.Site.URL != "" {
		u, err := url.Parse(cfg.Site.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("site.url must be an absolute URL", "site.url", cfg.Site.URL)
		}
	}

	if _, err := logLevelNormalizer.NormalizeWithError(string(cfg.Logging.Level)); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryValidation, "invalid logging.level").Build()
	}
	return nil
}

// ValidateOut refuses an output directory that would take sources with it
// when it is removed: the working directory or one of its parents, or a
// directory equal to or containing a source directory or the history database.
func ValidateOut(cfg Config) error {
	out := cleanAbs(cfg.Out)
	if within(out, cleanAbs(".")) {
		return invalid("out must not be the working directory or one of its parents", "out", cfg.Out)
	}
	sources := []struct{ field, path string }{
		{"content.pages", cfg.Content.Pages},
		{"assets.root", cfg.Assets.Root},
		{"assets.images", cfg.Assets.Images},
		{"assets.scripts", cfg.Assets.Scripts},
		{"assets.styles", cfg.Assets.Styles},
		{"templates.dir", cfg.Templates.Dir},
		{"build.history_db", cfg.Build.HistoryDB},
	}
	for _, src := range sources {
		if src.path == "" || src.path == ":memory:" {
			continue
		}
		if within(out, cleanAbs(src.path)) {
			return invalid("out must not contain or equal a source path", src.field, src.path)
		}
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func invalid(msg, field string, value any) error {
	return foundationerrors.ValidationError(msg).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}

func cleanAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
