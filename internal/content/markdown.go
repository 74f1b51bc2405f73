package content

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

// MarkdownRenderer renders CommonMark plus GitHub extensions with goldmark.
// A leading level-one heading becomes the title when the frontmatter has none,
// and is dropped from the body since layouts print the title themselves.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

func (r *MarkdownRenderer) Render(path string, src []byte) (*Document, error) {
	fm, body, _, err := frontmatter.Split(src)
	if err != nil {
		return nil, renderError(err, path, "split frontmatter")
	}
	header, err := frontmatter.Decode(fm)
	if err != nil {
		return nil, renderError(err, path, "decode frontmatter")
	}
	created, err := header.CreatedAt()
	if err != nil {
		return nil, renderError(err, path, "parse created date")
	}
	updated, err := header.UpdatedAt()
	if err != nil {
		return nil, renderError(err, path, "parse updated date")
	}

	root := r.md.Parser().Parse(text.NewReader(body))

	title := header.Title
	if h := leadingTitle(root); h != nil {
		if title == "" {
			title = plainText(h, body)
		}
		root.RemoveChild(root, h)
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, root); err != nil {
		return nil, renderError(err, path, "render markdown")
	}

	return &Document{
		Frontmatter: site.Frontmatter{
			Title:       title,
			Description: header.Description,
			Created:     created,
			Updated:     updated,
		},
		Body:  template.HTML(buf.String()), // #nosec G203 -- goldmark output, raw HTML disabled
		Draft: header.Draft,
	}, nil
}

// leadingTitle returns the first block when it is a level-one heading.
func leadingTitle(root gmast.Node) *gmast.Heading {
	h, ok := root.FirstChild().(*gmast.Heading)
	if !ok || h.Level != 1 {
		return nil
	}
	return h
}

func plainText(n gmast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = gmast.Walk(n, func(child gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *gmast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *gmast.String:
			buf.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return string(bytes.TrimSpace(buf.Bytes()))
}
