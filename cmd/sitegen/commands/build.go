package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" help:"Override the configured output directory"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	if b.Output != "" {
		cfg.Out = b.Output
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	_, err = RunBuild(ctx, cfg, os.Stdout)
	return err
}

// RunBuild performs one full build and prints a short summary to w.
func RunBuild(ctx context.Context, cfg config.Config, w io.Writer) (*build.Report, error) {
	b, deps, err := newBuilder(cfg, metrics.NoopRecorder{})
	if err != nil {
		return nil, err
	}
	defer deps.Close()

	report, err := b.BuildSite(ctx, site.New(cfg))
	if report != nil {
		printReport(w, cfg, report)
	}
	return report, err
}

func printReport(w io.Writer, cfg config.Config, r *build.Report) {
	_, _ = fmt.Fprintf(w, "Build %s %s: %d pages -> %s (%s, %s)\n",
		r.ID, r.Status, r.Pages, cfg.Out, modeName(r.Production), r.Duration.Round(time.Millisecond))
	if r.Compressed.Files > 0 {
		_, _ = fmt.Fprintf(w, "Compressed %d of %d files\n", r.Compressed.Compressed, r.Compressed.Files)
	}
	for _, st := range r.Stages {
		if st.Failed() {
			_, _ = fmt.Fprintf(w, "  %s failed: %s\n", st.Name, st.Error)
		}
	}
}
