package config

import (
	"os"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

const exampleHeader = `# sitegen configuration.
# Values may reference environment variables (${VAR}); .env and .env.local are
# loaded first without overriding variables that are already set.
# SITEGEN_ENV=production forces production mode (minified HTML, hashed styles,
# gzip and brotli siblings).
`

// Init writes an example configuration to path. An existing file is only
// replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return foundationerrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	example := Default()
	example.Site.Title = "My Site"
	example.Site.URL = "https://example.com"
	example.Site.Description = "Notes and writing"
	example.Site.Author = "${USER}"
	example.Build.HistoryDB = ".sitegen/history.db"
	example.Server.Debounce = defaultDebounce.String()

	data, err := yaml.Marshal(&example)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to marshal example config").Build()
	}

	if err := os.WriteFile(path, append([]byte(exampleHeader), data...), 0o644); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}
