// Package content turns document sources into rendered pages: renderers for
// each supported markup, and the pipeline that writes pages, the landing and
// 404 pages, and the sitemap into the output tree.
package content

import (
	"html/template"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

// Document is a parsed source: its header data and the rendered HTML fragment.
type Document struct {
	Frontmatter site.Frontmatter
	Body        template.HTML
	Draft       bool
}

// Renderer converts the source bytes of one document. path is used for error
// context only.
type Renderer interface {
	Render(path string, src []byte) (*Document, error)
}

// Registry maps file extensions (without dot) to renderers.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry returns a registry with the built-in renderers: AsciiDoc for
// "adoc" and goldmark Markdown for "md".
func NewRegistry() *Registry {
	r := &Registry{renderers: make(map[string]Renderer)}
	r.Register("adoc", NewAsciidocRenderer())
	r.Register("md", NewMarkdownRenderer())
	return r
}

// Register binds ext to renderer, replacing any earlier binding.
func (r *Registry) Register(ext string, renderer Renderer) {
	r.renderers[strings.TrimPrefix(strings.ToLower(ext), ".")] = renderer
}

// Lookup returns the renderer for ext.
func (r *Registry) Lookup(ext string) (Renderer, bool) {
	renderer, ok := r.renderers[strings.TrimPrefix(strings.ToLower(ext), ".")]
	return renderer, ok
}

// Render picks the renderer by the extension of path. Documents without a
// title get one derived from the file name.
func (r *Registry) Render(path string, src []byte) (*Document, error) {
	renderer, ok := r.Lookup(filepath.Ext(path))
	if !ok {
		return nil, renderError(nil, path, "no renderer for extension")
	}
	doc, err := renderer.Render(path, src)
	if err != nil {
		return nil, err
	}
	if doc.Frontmatter.Title == "" {
		doc.Frontmatter.Title = TitleFromName(path)
	}
	return doc, nil
}

var titleCaser = cases.Title(language.English)

// TitleFromName turns "getting-started.md" into "Getting Started".
func TitleFromName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return titleCaser.String(strings.Join(strings.Fields(name), " "))
}

// renderError classifies a render failure and logs it once.
func renderError(cause error, path, message string) error {
	var b *ferrors.ErrorBuilder
	if cause != nil {
		b = ferrors.WrapError(cause, ferrors.CategoryRender, message)
	} else {
		b = ferrors.RenderError(message)
	}
	err := b.WithContext("path", path).Build()
	slog.Error("Render failed", logfields.Path(path), logfields.Error(err))
	return err
}
