// Package templates wraps rendered content in the site's HTML layouts.
//
// Layouts, partials and the bodies of the synthesized landing and 404 pages are
// embedded html/template definitions. A directory of *.html files may redefine
// any of them by name ({{define "page"}}...).
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

//go:embed layouts/*.html partials/*.html pages/*.html
var embedded embed.FS

// Content is the structured input a layout renders.
type Content struct {
	Title       string
	Description string
	Path        string
	Created     time.Time
	Updated     time.Time
	Body        template.HTML
}

// Renderer turns structured content into a complete HTML document.
type Renderer interface {
	Render(s *site.Site, layout site.Layout, c Content) (string, error)
	LandingBody(s *site.Site) (template.HTML, error)
	NotFoundBody(s *site.Site) (template.HTML, error)
}

// HTMLRenderer is the html/template implementation of Renderer.
type HTMLRenderer struct {
	tpl *template.Template
	now func() time.Time
}

// pageData is what every template executes against.
type pageData struct {
	Site        config.SiteConfig
	Title       string
	Heading     string
	Description string
	Path        string
	Canonical   string
	Style       string
	Created     time.Time
	Updated     time.Time
	Body        template.HTML
	Pages       []site.ContentData
	Year        int
}

var funcs = template.FuncMap{
	"isodate":  func(t time.Time) string { return t.Format("2006-01-02") },
	"longdate": func(t time.Time) string { return t.Format("January 2, 2006") },
}

// NewHTMLRenderer parses the embedded templates and then, when dir is set,
// every *.html file in dir so its definitions take precedence.
func NewHTMLRenderer(dir string) (*HTMLRenderer, error) {
	tpl, err := template.New("sitegen").Funcs(funcs).
		ParseFS(embedded, "layouts/*.html", "partials/*.html", "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse embedded templates: %w", err)
	}

	if dir != "" {
		matches, err := filepath.Glob(filepath.Join(dir, "*.html"))
		if err != nil {
			return nil, fmt.Errorf("list templates in %s: %w", dir, err)
		}
		for _, path := range matches {
			data, err := os.ReadFile(path) // #nosec G304 -- configured template directory
			if err != nil {
				return nil, fmt.Errorf("read template %s: %w", path, err)
			}
			if _, err := tpl.New(filepath.Base(path)).Parse(string(data)); err != nil {
				return nil, fmt.Errorf("parse template %s: %w", path, err)
			}
		}
	}

	return &HTMLRenderer{tpl: tpl, now: time.Now}, nil
}

// Render executes the layout with c.
func (r *HTMLRenderer) Render(s *site.Site, layout site.Layout, c Content) (string, error) {
	cfg := s.Config()
	data := r.data(s)
	data.Title = CreateTitle(cfg.Site, c.Title)
	data.Heading = c.Title
	data.Description = c.Description
	if data.Description == "" {
		data.Description = cfg.Site.Description
	}
	data.Path = c.Path
	data.Canonical = canonical(cfg.Site.URL, c.Path)
	data.Created = c.Created
	data.Updated = c.Updated
	data.Body = c.Body

	return r.execute(string(layout), data)
}

// LandingBody renders the body of the landing page, which lists every
// registered document page.
func (r *HTMLRenderer) LandingBody(s *site.Site) (template.HTML, error) {
	data := r.data(s)
	for _, p := range s.Pages() {
		if p.Source != "" {
			data.Pages = append(data.Pages, p)
		}
	}
	out, err := r.execute("landing", data)
	return template.HTML(out), err // #nosec G203 -- produced by html/template
}

// NotFoundBody renders the body of the 404 page.
func (r *HTMLRenderer) NotFoundBody(s *site.Site) (template.HTML, error) {
	out, err := r.execute("notfound", r.data(s))
	return template.HTML(out), err // #nosec G203 -- produced by html/template
}

func (r *HTMLRenderer) data(s *site.Site) pageData {
	cfg := s.Config()
	return pageData{
		Site:  cfg.Site,
		Style: s.Style(cfg.Assets.StyleName()),
		Year:  r.now().Year(),
	}
}

func (r *HTMLRenderer) execute(name string, data pageData) (string, error) {
	if r.tpl.Lookup(name) == nil {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

func canonical(base, path string) string {
	if base == "" {
		return path
	}
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + path
}
