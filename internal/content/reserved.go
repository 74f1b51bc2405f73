package content

import (
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/assets"
	"git.home.luguber.info/inful/sitegen/internal/config"
)

// reservedName reports whether a page named name would land on output owned
// by something else: the copied asset trees, the 404 page, the sitemap, the
// stylesheet or an allow-listed root file. Names compare case-insensitively
// so the check also holds on case-folding filesystems.
func reservedName(cfg config.Config, name string) bool {
	if name == "" {
		return true
	}
	owned := []string{
		assets.ImagesDir,
		assets.ScriptsDir,
		strings.SplitN(assets.StylesDir, "/", 2)[0],
		strings.Trim(notFoundPath, "/"),
		sitemapFile,
		indexFile,
		cfg.Assets.StyleName(),
	}
	owned = append(owned, cfg.RootFiles...)
	for _, o := range owned {
		if strings.EqualFold(name, o) {
			return true
		}
	}
	return false
}
