// Package compress writes precompressed gzip and Brotli siblings next to the
// files of a production build.
package compress

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"git.home.luguber.info/inful/sitegen/internal/config"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/fsutil"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/observability"
)

// Excluded lists the extensions that are never compressed. The empty string
// matches files without an extension.
var Excluded = []string{".map", ".txt", ".scss", ".gz", ".br", ""}

// Summary counts the outcome of a compression run.
type Summary struct {
	Files      int
	Compressed int
	Failed     int
}

type encoder struct {
	ext string
	new func(w io.Writer) (io.WriteCloser, error)
}

var encoders = []encoder{
	{ext: ".gz", new: func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	}},
	{ext: ".br", new: func(w io.Writer) (io.WriteCloser, error) {
		return brotli.NewWriterLevel(w, brotli.BestCompression), nil
	}},
}

// Compress writes <file>.gz and <file>.br for every eligible file under the
// output directory. It does nothing outside production. Files are handled by
// at most Build.Concurrency workers; a failing file is logged and counted but
// never stops the others. Only a failure to list the output tree (or
// cancellation) is returned.
func Compress(ctx context.Context, cfg config.Config) (Summary, error) {
	if !cfg.Production {
		return Summary{}, nil
	}
	files, err := fsutil.ListAllExcept(cfg.Out, Excluded)
	if err != nil {
		return Summary{}, err
	}

	workers := max(cfg.Build.Concurrency, 1)
	sem := make(chan struct{}, workers)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sum = Summary{Files: len(files)}
	)
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			err := File(file)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sum.Failed++
				return
			}
			sum.Compressed++
		}()
	}
	wg.Wait()

	observability.DebugContext(ctx, "Compression finished",
		logfields.Count(sum.Compressed), slog.Int("failed", sum.Failed))
	return sum, ctx.Err()
}

// File writes the gzip and Brotli siblings of path.
func File(path string) error {
	for _, enc := range encoders {
		if err := writeSibling(path, enc); err != nil {
			return err
		}
	}
	return nil
}

func writeSibling(path string, enc encoder) (err error) {
	target := path + enc.ext
	in, err := os.Open(path) // #nosec G304 -- path comes from listing the output directory
	if err != nil {
		return compressError(err, path)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(target) // #nosec G304 -- sibling of a listed output file
	if err != nil {
		return compressError(err, target)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = compressError(cerr, target)
		}
		if err != nil {
			_ = os.Remove(target)
		}
	}()

	w, err := enc.new(out)
	if err != nil {
		return compressError(err, target)
	}
	if _, err := io.Copy(w, in); err != nil {
		_ = w.Close()
		return compressError(err, target)
	}
	if err := w.Close(); err != nil {
		return compressError(err, target)
	}
	return nil
}

func compressError(err error, path string) error {
	slog.Warn("Compression failed", logfields.Path(path), logfields.Error(err))
	return ferrors.WrapError(err, ferrors.CategoryCompress, "compress "+path).
		Warning().
		WithContext("path", path).
		Build()
}
