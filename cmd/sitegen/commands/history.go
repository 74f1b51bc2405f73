package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of builds to list (0 lists all)" default:"10"`
	ID    string `arg:"" optional:"" help:"Show the stage breakdown of one build"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	return RunHistory(context.Background(), cfg, h.ID, h.Limit, os.Stdout)
}

// RunHistory prints either the recent builds or the report of build id.
func RunHistory(ctx context.Context, cfg config.Config, id string, limit int, w io.Writer) error {
	if cfg.Build.HistoryDB == "" {
		return ferrors.ConfigError("build history is not enabled (set build.history_db)").Build()
	}
	if _, err := os.Stat(cfg.Build.HistoryDB); err != nil {
		return ferrors.NotFoundError("no build history recorded yet").
			WithContext("path", cfg.Build.HistoryDB).
			Build()
	}
	store, err := history.Open(cfg.Build.HistoryDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if id != "" {
		report, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		printDetail(w, report)
		return nil
	}

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tMODE\tPAGES\tDURATION")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ID, e.Start.Local().Format(time.DateTime), e.Status, modeName(e.Production), e.Pages, e.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}

func printDetail(w io.Writer, r *build.Report) {
	_, _ = fmt.Fprintf(w, "Build %s\n", r.ID)
	_, _ = fmt.Fprintf(w, "Status:   %s\n", r.Status)
	_, _ = fmt.Fprintf(w, "Mode:     %s\n", modeName(r.Production))
	_, _ = fmt.Fprintf(w, "Started:  %s\n", r.Start.Local().Format(time.DateTime))
	_, _ = fmt.Fprintf(w, "Duration: %s\n", r.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "Pages:    %d\n", r.Pages)
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "Error:    %s\n", r.Error)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "\nSTAGE\tDURATION\tRESULT")
	for _, st := range r.Stages {
		result := "ok"
		if st.Failed() {
			result = st.Error
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Name, st.Duration.Round(time.Millisecond), result)
	}
	_ = tw.Flush()
}

func modeName(production bool) string {
	if production {
		return "production"
	}
	return "development"
}
