package site

import (
	"html/template"
	"time"
)

// Layout names a page template.
type Layout string

const (
	LayoutDefault Layout = "default"
	LayoutPage    Layout = "page"
)

// Metadata locates a rendered page in the output tree.
type Metadata struct {
	// Path is the URL path, always with leading and trailing slash ("/about/").
	Path   string
	Layout Layout
}

// Frontmatter is the document header data a page is rendered with.
type Frontmatter struct {
	Title       string
	Description string
	Created     time.Time
	Updated     time.Time
}

// LastModified returns Updated when set, otherwise Created.
func (f Frontmatter) LastModified() time.Time {
	if !f.Updated.IsZero() {
		return f.Updated
	}
	return f.Created
}

// ContentData is one rendered page. Body is dropped when the page is stored
// in State.
type ContentData struct {
	Metadata    Metadata
	Frontmatter Frontmatter
	Body        template.HTML

	// Source is the document the page was rendered from; empty for synthesized
	// pages such as the landing and 404 pages.
	Source string

	// Fingerprint identifies the inputs the page was last rendered from.
	Fingerprint string

	// SourceModified is the last commit time of Source, when known.
	SourceModified time.Time
}

// PagePath returns the URL path for a document named name rendered with layout.
// The page layout nests the document in its own directory; anything else is
// treated as the site root.
func PagePath(name string, layout Layout) string {
	if layout == LayoutPage && name != "" {
		return "/" + name + "/"
	}
	return "/"
}
