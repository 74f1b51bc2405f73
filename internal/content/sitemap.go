package content

import (
	"context"
	"encoding/xml"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/fsutil"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap writes <out>/sitemap.xml listing every registered page except the
// 404 page, sorted by path. lastmod prefers the source's last commit time over
// the frontmatter dates.
func (p *Pipeline) Sitemap(ctx context.Context, s *site.Site) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := s.Config()
	base := strings.TrimSuffix(cfg.Site.URL, "/")

	set := urlSet{Xmlns: sitemapNamespace}
	for _, page := range s.Pages() {
		if page.Metadata.Path == notFoundPath {
			continue
		}
		entry := sitemapURL{Loc: base + page.Metadata.Path}
		if mod := lastModified(page); !mod.IsZero() {
			entry.LastMod = mod.UTC().Format(time.DateOnly)
		}
		set.URLs = append(set.URLs, entry)
	}

	data, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return renderError(err, sitemapFile, "encode sitemap")
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')
	return fsutil.WriteFile(filepath.Join(cfg.Out, sitemapFile), data)
}

func lastModified(page site.ContentData) time.Time {
	if !page.SourceModified.IsZero() {
		return page.SourceModified
	}
	return page.Frontmatter.LastModified()
}
