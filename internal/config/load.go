package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "sitegen.yaml"

var envFiles = []string{".env", ".env.local"}

// Load reads configuration from path. A missing file is tolerated only when path
// is DefaultPath, in which case Default() is used. The returned Config has
// environment overrides applied and has passed Validate.
func Load(path string) (Config, error) {
	loadEnvFiles()

	cfg, err := readFile(path)
	if err != nil {
		return Config{}, err
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			slog.Debug("No config file found, using defaults", slog.String("path", path))
			return Default(), nil
		}
		if os.IsNotExist(err) {
			return Config{}, foundationerrors.ConfigError("configuration file not found").
				WithContext("path", path).
				Build()
		}
		return Config{}, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read config file").
			WithContext("path", path).
			Build()
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to parse config file").
			WithContext("path", path).
			Fatal().
			Build()
	}
	return cfg, nil
}

// loadEnvFiles populates the process environment from .env files. Variables that
// are already set are left untouched, and missing files are not an error.
func loadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", slog.String("path", name), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Loaded environment file", slog.String("path", name))
	}
}

func applyEnvOverrides(cfg *Config) {
	if strings.EqualFold(strings.TrimSpace(os.Getenv(EnvMode)), "production") {
		cfg.Production = true
	}
	if out := strings.TrimSpace(os.Getenv(EnvOut)); out != "" {
		cfg.Out = out
	}
	if lvl := strings.TrimSpace(os.Getenv(EnvLogLevel)); lvl != "" {
		cfg.Logging.Level = NormalizeLogLevel(lvl)
	}
}
