package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/devserver"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

const shutdownTimeout = 5 * time.Second

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Port           int `short:"p" help:"Override server.port"`
	LiveReloadPort int `name:"livereload-port" help:"Override server.livereload_port"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	if s.Port != 0 {
		cfg.Server.Port = s.Port
	}
	if s.LiveReloadPort != 0 {
		cfg.Server.LiveReloadPort = s.LiveReloadPort
	}

	opts := devserver.OptionsFromConfig(cfg)
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Server.MetricsAddr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		opts.MetricsHandler = metrics.HTTPHandler(reg)
	}
	opts.Recorder = recorder

	b, deps, err := newBuilder(cfg, recorder)
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, stop := notifyContext(context.Background())
	defer stop()

	st := site.New(cfg)
	if _, err := b.BuildSite(ctx, st); err != nil {
		// Keep serving: the next successful rebuild replaces the broken output.
		slog.Error("Initial build failed", slog.String("error", err.Error()))
	}
	if ctx.Err() != nil {
		return nil
	}

	srv, err := devserver.New(st, b, opts)
	if err != nil {
		return err
	}
	return serve(ctx, srv)
}

var _ devserver.Builder = (*build.Builder)(nil)

func serve(ctx context.Context, srv *devserver.Server) error {
	fmt.Printf("Serving on http://%s/ (live reload on %s)\n", srv.Addr(), srv.LiveReloadAddr())

	// Run stops through Shutdown, so push clients hear about it first.
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(context.WithoutCancel(ctx)) }()

	select {
	case err := <-runErr:
		_ = srv.Close()
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down dev server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("Dev server shutdown error", slog.String("error", err.Error()))
	}
	return <-runErr
}
