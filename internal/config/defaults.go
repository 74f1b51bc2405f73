package config

import (
	"path/filepath"
	"time"
)

const defaultDebounce = 100 * time.Millisecond

// DefaultRootFiles is the allow-list of optional files copied from the assets root
// into the output root.
var DefaultRootFiles = []string{
	"robots.txt",
	"humans.txt",
	"apple-touch-icon.png",
	"favicon.ico",
	"icon.svg",
	"icon-192.png",
	"icon-512.png",
	"manifest.webmanifest",
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		Out: "public",
		Site: SiteConfig{
			Title:       "Eons",
			URL:         "http://localhost:3000",
			Description: "A static site",
			Language:    "en",
			Nav:         []NavItem{{Name: "About", URL: "/about/"}},
		},
		Content: ContentConfig{
			Pages:      filepath.Join("content", "pages"),
			Extensions: []string{"adoc", "md"},
		},
		Assets: AssetsConfig{
			Root:       "assets",
			Images:     filepath.Join("assets", "images"),
			Scripts:    filepath.Join("assets", "js"),
			Styles:     filepath.Join("assets", "scss"),
			StyleEntry: "style.scss",
			SassBinary: "sass",
		},
		RootFiles: append([]string(nil), DefaultRootFiles...),
		Build: BuildConfig{
			Concurrency: 4,
			GitInfo:     true,
		},
		Server: ServerConfig{
			Host:           "localhost",
			Port:           3000,
			LiveReloadPort: 3001,
		},
		Notify: NotifyConfig{
			Subject: "sitegen.builds",
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// applyDefaults fills zero values left behind by a partial config file.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Out == "" {
		cfg.Out = def.Out
	}
	if cfg.Content.Pages == "" {
		cfg.Content.Pages = def.Content.Pages
	}
	if len(cfg.Content.Extensions) == 0 {
		cfg.Content.Extensions = def.Content.Extensions
	}
	if cfg.Assets.Root == "" {
		cfg.Assets.Root = def.Assets.Root
	}
	if cfg.Assets.StyleEntry == "" {
		cfg.Assets.StyleEntry = def.Assets.StyleEntry
	}
	if cfg.Assets.SassBinary == "" {
		cfg.Assets.SassBinary = def.Assets.SassBinary
	}
	if cfg.RootFiles == nil {
		cfg.RootFiles = def.RootFiles
	}
	if cfg.Build.Concurrency == 0 {
		cfg.Build.Concurrency = def.Build.Concurrency
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.LiveReloadPort == 0 {
		cfg.Server.LiveReloadPort = def.Server.LiveReloadPort
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = def.Notify.Subject
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}

func joinPath(dir, name string) string {
	if dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
