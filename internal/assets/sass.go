package assets

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/fsutil"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

const defaultSassBinary = "sass"

// SassRenderer compiles SCSS/Sass entries with the external sass executable.
type SassRenderer struct {
	// Binary is the sass executable; "sass" on PATH when empty.
	Binary string
}

func (r *SassRenderer) Render(ctx context.Context, s *site.Site, entry string) error {
	cfg := s.Config()
	binary := r.Binary
	if binary == "" {
		binary = defaultSassBinary
	}

	name := cfg.Assets.StyleName()
	target := filepath.Join(cfg.Out, name)
	if err := fsutil.CreateDirectory(cfg.Out); err != nil {
		return err
	}

	args := []string{"--no-source-map"}
	if cfg.Production {
		args = append(args, "--style=compressed")
	}
	args = append(args, entry, target)

	// #nosec G204 -- binary and paths come from the site configuration
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := "sass failed"
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			msg += ": " + detail
		}
		return styleError(err, entry, msg)
	}
	return publish(ctx, s, name)
}
