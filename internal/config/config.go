package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Environment variables consulted after the config file is parsed.
const (
	EnvMode     = "SITEGEN_ENV"       // "production" forces Production=true
	EnvOut      = "SITEGEN_OUT"       // overrides Out
	EnvLogLevel = "SITEGEN_LOG_LEVEL" // overrides Logging.Level
)

// Config is the immutable build configuration. It is constructed once by Load or
// Default and passed by value afterwards; nothing mutates it during a build.
type Config struct {
	Out        string          `yaml:"out"`
	Production bool            `yaml:"production"`
	Site       SiteConfig      `yaml:"site"`
	Content    ContentConfig   `yaml:"content"`
	Assets     AssetsConfig    `yaml:"assets"`
	Templates  TemplatesConfig `yaml:"templates"`
	RootFiles  []string        `yaml:"root_files"`
	Build      BuildConfig     `yaml:"build"`
	Server     ServerConfig    `yaml:"server"`
	Notify     NotifyConfig    `yaml:"notify"`
	Logging    LoggingConfig   `yaml:"logging"`
}

// SiteConfig holds site metadata used by templates and the sitemap.
type SiteConfig struct {
	Title       string    `yaml:"title"`
	URL         string    `yaml:"url"`
	Description string    `yaml:"description"`
	Author      string    `yaml:"author,omitempty"`
	Language    string    `yaml:"language,omitempty"`
	Nav         []NavItem `yaml:"nav,omitempty"`
}

// NavItem is a navigation link rendered in the page header.
type NavItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ContentConfig locates document sources.
type ContentConfig struct {
	Pages      string   `yaml:"pages"`
	Extensions []string `yaml:"extensions"`
}

// AssetsConfig locates static assets and the stylesheet entry point.
type AssetsConfig struct {
	Root       string `yaml:"root"`
	Images     string `yaml:"images"`
	Scripts    string `yaml:"scripts"`
	Styles     string `yaml:"styles"`
	StyleEntry string `yaml:"style_entry"`
	SassBinary string `yaml:"sass_binary,omitempty"`
}

// StyleEntryPath returns the stylesheet entry joined onto the styles directory.
func (a AssetsConfig) StyleEntryPath() string {
	return joinPath(a.Styles, a.StyleEntry)
}

// StyleName is the logical name of the compiled stylesheet: the entry's stem
// with a .css extension.
func (a AssetsConfig) StyleName() string {
	base := filepath.Base(a.StyleEntry)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".css"
}

// TemplatesConfig optionally points at an on-disk layout override directory.
type TemplatesConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// BuildConfig tunes the build orchestrator.
type BuildConfig struct {
	Concurrency int    `yaml:"concurrency"`
	GitInfo     bool   `yaml:"git_info"`
	HistoryDB   string `yaml:"history_db,omitempty"`
}

// ServerConfig configures the development server.
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	LiveReloadPort  int    `yaml:"livereload_port"`
	MetricsAddr     string `yaml:"metrics_addr,omitempty"`
	Debounce        string `yaml:"debounce,omitempty"`
	RebuildInterval string `yaml:"rebuild_interval,omitempty"`
}

// DebounceDuration parses Debounce, falling back to the default on error.
func (s ServerConfig) DebounceDuration() time.Duration {
	return parseDurationOr(s.Debounce, defaultDebounce)
}

// RebuildEvery parses RebuildInterval; zero disables periodic rebuilds.
func (s ServerConfig) RebuildEvery() time.Duration {
	return parseDurationOr(s.RebuildInterval, 0)
}

// NotifyConfig configures build-completed notifications over NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Enabled reports whether a NATS URL is configured.
func (n NotifyConfig) Enabled() bool {
	return n.NATSURL != ""
}

// LoggingConfig selects slog level and handler format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
