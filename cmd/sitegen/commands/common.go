package commands

import (
	"log/slog"
	"os"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/history"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/notify"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config     string `short:"c" help:"Configuration file path" default:"sitegen.yaml"`
	Verbose    bool   `short:"v" help:"Enable verbose logging"`
	Production bool   `help:"Build for production (minified HTML, hashed styles, compressed siblings)"`

	Build   BuildCmd   `cmd:"" help:"Build the site into the output directory"`
	Serve   ServeCmd   `cmd:"" help:"Build, serve and rebuild on change with live reload"`
	Clean   CleanCmd   `cmd:"" help:"Remove the output directory"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	History HistoryCmd `cmd:"" help:"Show recorded builds"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// AfterApply runs after flag parsing and installs a bootstrap logger. LoadConfig
// replaces it once the logging section is known.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// LoadConfig loads the configuration named by --config and applies the global
// flag overrides.
func (c *CLI) LoadConfig(g *Global) (config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return config.Config{}, err
	}
	if c.Production {
		cfg.Production = true
	}
	logger := cfg.Logging.NewLogger(os.Stderr, c.Verbose)
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return cfg, nil
}

// builderDeps holds the optional build observers so callers can release them.
type builderDeps struct {
	store    *history.Store
	notifier *notify.Notifier
}

func (d builderDeps) Close() {
	if d.notifier != nil {
		if err := d.notifier.Close(); err != nil {
			slog.Warn("Failed to close notifier", slog.String("error", err.Error()))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			slog.Warn("Failed to close history store", slog.String("error", err.Error()))
		}
	}
}

// newBuilder wires the build history store and NATS notifier (when
// configured) as observers. Neither is required for a build, so failures to
// open them are logged and the build proceeds without them.
func newBuilder(cfg config.Config, recorder metrics.Recorder) (*build.Builder, builderDeps, error) {
	var deps builderDeps
	opts := []build.Option{build.WithRecorder(recorder)}

	if cfg.Build.HistoryDB != "" {
		if err := ensureParent(cfg.Build.HistoryDB); err != nil {
			slog.Warn("Build history disabled", slog.String("path", cfg.Build.HistoryDB), slog.String("error", err.Error()))
		} else if store, err := history.Open(cfg.Build.HistoryDB); err != nil {
			slog.Warn("Build history disabled", slog.String("path", cfg.Build.HistoryDB), slog.String("error", err.Error()))
		} else {
			deps.store = store
			opts = append(opts, build.WithObserver(store))
		}
	}

	if cfg.Notify.Enabled() {
		if n, err := notify.Connect(cfg); err != nil {
			slog.Warn("Build notifications disabled", slog.String("error", err.Error()))
		} else {
			deps.notifier = n
			opts = append(opts, build.WithObserver(n))
		}
	}

	b, err := build.NewBuilder(cfg, opts...)
	if err != nil {
		deps.Close()
		return nil, builderDeps{}, err
	}
	return b, deps, nil
}
