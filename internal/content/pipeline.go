package content

import (
	"context"
	"html/template"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/sitegen/internal/fsutil"
	"git.home.luguber.info/inful/sitegen/internal/gitinfo"
	"git.home.luguber.info/inful/sitegen/internal/htmlpost"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/site"
	"git.home.luguber.info/inful/sitegen/internal/templates"
)

const (
	indexFile    = "index.html"
	sitemapFile  = "sitemap.xml"
	notFoundPath = "/404/"
)

// Pipeline renders document pages, the synthesized pages and the sitemap.
type Pipeline struct {
	registry  *Registry
	templates templates.Renderer
	git       gitinfo.Source
}

// NewPipeline wires the pipeline collaborators. A nil git source disables
// commit-time lookups.
func NewPipeline(registry *Registry, tpl templates.Renderer, git gitinfo.Source) *Pipeline {
	if git == nil {
		git = gitinfo.None{}
	}
	return &Pipeline{registry: registry, templates: tpl, git: git}
}

// RenderPages renders every document in the pages directory (not recursive)
// to <out>/<name>/index.html. Documents are processed one at a time in walk
// order and the first failure aborts the run.
//
// A document whose fingerprint matches its previous registration and whose
// output still exists is skipped. Registrations of documents that no longer
// exist are dropped along with their output directory.
func (p *Pipeline) RenderPages(ctx context.Context, s *site.Site) error {
	cfg := s.Config()
	if !fsutil.Exists(cfg.Content.Pages) {
		slog.Debug("Pages directory missing, nothing to render", logfields.Path(cfg.Content.Pages))
		p.prune(s, nil)
		return nil
	}

	style := s.Style(cfg.Assets.StyleName())
	seen := make(map[string]struct{})
	for _, ext := range cfg.Content.Extensions {
		files, err := fsutil.Walk(cfg.Content.Pages, ext, false)
		if err != nil {
			return err
		}
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			seen[file] = struct{}{}
			if err := p.renderPage(s, file, style); err != nil {
				return err
			}
		}
	}
	p.prune(s, seen)
	return nil
}

func (p *Pipeline) renderPage(s *site.Site, file, style string) error {
	cfg := s.Config()
	src, err := fsutil.ReadFile(file)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if reservedName(cfg, name) {
		slog.Warn("Skipping document whose name is reserved for other output",
			logfields.Source(file), slog.String("name", name))
		return nil
	}
	path := site.PagePath(name, site.LayoutPage)
	out := OutputPath(cfg.Out, path)
	fingerprint := mdfp.CalculateFingerprintFromParts("style: "+style, string(src))

	if prev, ok := s.State().Page(path); ok && prev.Source == file && prev.Fingerprint == fingerprint && fsutil.Exists(out) {
		slog.Debug("Page unchanged, skipping", logfields.Page(path))
		return nil
	}

	doc, err := p.registry.Render(file, src)
	if err != nil {
		return err
	}
	if doc.Draft && cfg.Production {
		slog.Info("Skipping draft page", logfields.Source(file))
		return nil
	}

	modified, err := p.git.LastModified(file)
	if err != nil {
		slog.Debug("Git history unavailable, sitemap date falls back to frontmatter",
			logfields.Source(file), logfields.Error(err))
	}

	page, err := p.templates.Render(s, site.LayoutPage, templates.Content{
		Title:       doc.Frontmatter.Title,
		Description: doc.Frontmatter.Description,
		Path:        path,
		Created:     doc.Frontmatter.Created,
		Updated:     doc.Frontmatter.Updated,
		Body:        doc.Body,
	})
	if err != nil {
		return renderError(err, file, "apply page layout")
	}

	s.AddPage(site.ContentData{
		Metadata:       site.Metadata{Path: path, Layout: site.LayoutPage},
		Frontmatter:    doc.Frontmatter,
		Source:         file,
		Fingerprint:    fingerprint,
		SourceModified: modified,
	})
	if err := fsutil.WriteFile(out, []byte(htmlpost.WriteHTML(page, cfg.Production))); err != nil {
		return err
	}
	slog.Debug("Rendered page", logfields.Page(path), logfields.Source(file))
	return nil
}

func (p *Pipeline) prune(s *site.Site, seen map[string]struct{}) {
	out := s.Config().Out
	for _, path := range s.State().PruneSources(seen) {
		name := strings.Trim(path, "/")
		if name == "" || strings.Contains(name, "/") || reservedName(s.Config(), name) {
			slog.Warn("Not removing reserved output of deleted page", logfields.Page(path))
			continue
		}
		dir := filepath.Join(out, name)
		if err := fsutil.RemoveTree(dir, true, true); err != nil {
			slog.Warn("Failed to remove output of deleted page", logfields.Page(path), logfields.Error(err))
			continue
		}
		slog.Info("Removed page of deleted source", logfields.Page(path))
	}
}

// RenderSpecialPages writes the landing page to <out>/index.html and the 404
// page to <out>/404/index.html and registers both. The landing page lists the
// document pages registered so far.
func (p *Pipeline) RenderSpecialPages(ctx context.Context, s *site.Site) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := s.Config()

	landing, err := p.templates.LandingBody(s)
	if err != nil {
		return renderError(err, "/", "render landing page")
	}
	if err := p.writeSpecial(s, "/", cfg.Site.Title, cfg.Site.Description, landing); err != nil {
		return err
	}

	notFound, err := p.templates.NotFoundBody(s)
	if err != nil {
		return renderError(err, notFoundPath, "render 404 page")
	}
	return p.writeSpecial(s, notFoundPath, "404", "Page not found", notFound)
}

func (p *Pipeline) writeSpecial(s *site.Site, path, title, description string, body template.HTML) error {
	cfg := s.Config()
	page, err := p.templates.Render(s, site.LayoutDefault, templates.Content{
		Title:       title,
		Description: description,
		Path:        path,
		Body:        body,
	})
	if err != nil {
		return renderError(err, path, "apply default layout")
	}

	s.AddPage(site.ContentData{
		Metadata:    site.Metadata{Path: path, Layout: site.LayoutDefault},
		Frontmatter: site.Frontmatter{Title: title, Description: description},
	})
	return fsutil.WriteFile(OutputPath(cfg.Out, path), []byte(htmlpost.WriteHTML(page, cfg.Production)))
}

// OutputPath maps a page URL path to its index.html below out.
func OutputPath(out, urlPath string) string {
	rel := strings.Trim(urlPath, "/")
	if rel == "" {
		return filepath.Join(out, indexFile)
	}
	return filepath.Join(out, filepath.FromSlash(rel), indexFile)
}
