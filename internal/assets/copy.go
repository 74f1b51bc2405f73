// Package assets copies static assets into the output tree and renders the
// site stylesheet.
package assets

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/fsutil"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Output subdirectories owned by CopyAssets.
const (
	ImagesDir  = "images"
	StylesDir  = "assets/scss"
	ScriptsDir = "js"
)

type copyJob struct {
	src string
	dst string
}

// CopyAssets clears the images, style-source and script output directories,
// then copies the three source trees concurrently. All copies run to
// completion; the first failure (in job order) is returned unwrapped. A source
// directory that does not exist is skipped.
func CopyAssets(ctx context.Context, cfg config.Config) error {
	jobs := []copyJob{
		{src: cfg.Assets.Images, dst: filepath.Join(cfg.Out, ImagesDir)},
		{src: cfg.Assets.Styles, dst: filepath.Join(cfg.Out, filepath.FromSlash(StylesDir))},
		{src: cfg.Assets.Scripts, dst: filepath.Join(cfg.Out, ScriptsDir)},
	}

	targets := make([]string, len(jobs))
	for i, j := range jobs {
		targets[i] = j.dst
	}
	if err := fsutil.RemoveTrees(targets, true, true); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if j.src == "" || !fsutil.Exists(j.src) {
				slog.Debug("Asset source missing, skipping", logfields.Source(j.src))
				return
			}
			errs[i] = fsutil.CopyTree(j.src, j.dst, true)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
