package build

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/config"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/fsutil"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/observability"
)

// CreateRootFiles copies the allow-listed root files from the assets root to
// the output root. Absent files are skipped and copy failures are only logged
// at debug level; the stage never fails except on cancellation.
func CreateRootFiles(ctx context.Context, cfg config.Config) error {
	var wg sync.WaitGroup
	for _, name := range cfg.RootFiles {
		src := filepath.Join(cfg.Assets.Root, name)
		if !fsutil.Exists(src) {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fsutil.CopyFile(src, filepath.Join(cfg.Out, name), true); err != nil {
				observability.DebugContext(ctx, "Root file not copied", logfields.Source(src), logfields.Error(err))
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// Clean removes the output directory and everything below it. A missing
// directory is not an error. Paths that resolve to the working directory or
// the filesystem root are refused.
func Clean(cfg config.Config) error {
	if strings.TrimSpace(cfg.Out) == "" {
		return ferrors.ValidationError("refusing to clean output directory").
			WithContext("out", cfg.Out).
			Build()
	}
	if err := config.ValidateOut(cfg); err != nil {
		return err
	}
	return fsutil.RemoveTree(filepath.Clean(cfg.Out), true, true)
}
