package htmlpost

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type nodeKind int

const (
	rootNode nodeKind = iota
	elementNode
	textNode
	commentNode
	doctypeNode
)

// node is the layout tree the pretty-printer works on. Text is stored
// escaped, ready to be written.
type node struct {
	kind     nodeKind
	tag      string
	foreign  bool // SVG or MathML: an empty element is written self-closed
	attrs    []html.Attribute
	text     string // text, comment markup, doctype name, or verbatim content
	verbatim bool   // element content in text is emitted unchanged
	children []*node
}

func (n *node) isBlock() bool {
	switch n.kind {
	case doctypeNode:
		return true
	case elementNode:
		return !n.foreign && blockTags[n.tag]
	default:
		return false
	}
}

// blockContainer reports whether whitespace at the edges of n's content is
// insignificant.
func (n *node) blockContainer() bool {
	return n.kind == rootNode || n.isBlock()
}

// parse runs src through the HTML5 parser, as a full document when it starts
// like one and as body content otherwise, and converts the result.
func parse(src string) *node {
	root := &node{kind: rootNode}
	if isDocument(src) {
		doc, err := html.Parse(strings.NewReader(src))
		if err != nil {
			return root
		}
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			appendConverted(root, c)
		}
	} else {
		body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		nodes, err := html.ParseFragment(strings.NewReader(src), body)
		if err != nil {
			return root
		}
		for _, c := range nodes {
			appendConverted(root, c)
		}
	}
	normalize(root)
	return root
}

func appendConverted(parent *node, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		text := html.EscapeString(n.Data)
		if k := len(parent.children); k > 0 && parent.children[k-1].kind == textNode {
			parent.children[k-1].text += text
			return
		}
		parent.children = append(parent.children, &node{kind: textNode, text: text})
	case html.CommentNode:
		parent.children = append(parent.children, &node{kind: commentNode, text: "<!--" + n.Data + "-->"})
	case html.DoctypeNode:
		parent.children = append(parent.children, &node{kind: doctypeNode, text: n.Data})
	case html.ElementNode:
		el := &node{
			kind:    elementNode,
			tag:     n.Data,
			foreign: n.Namespace != "",
			attrs:   n.Attr,
		}
		parent.children = append(parent.children, el)
		if !el.foreign && verbatimTags[el.tag] {
			el.verbatim = true
			el.text = verbatimContent(n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			appendConverted(el, c)
		}
	}
}

// verbatimContent serializes the children of n exactly as they will be read
// back. The parser drops one newline right after <pre> and <textarea>, so a
// leading newline is doubled.
func verbatimContent(n *html.Node) string {
	var b bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && rawTextTags[n.Data] {
			b.WriteString(c.Data)
			continue
		}
		if c.Type == html.TextNode {
			b.WriteString(html.EscapeString(c.Data))
			continue
		}
		_ = html.Render(&b, c)
	}
	out := b.String()
	if (n.Data == "pre" || n.Data == "textarea" || n.Data == "listing") && strings.HasPrefix(out, "\n") {
		out = "\n" + out
	}
	return out
}

// normalize collapses whitespace in text nodes and trims it where it is
// adjacent to a block boundary, recursively.
func normalize(n *node) {
	if n.verbatim {
		return
	}
	kids := n.children
	for _, c := range kids {
		if c.kind == textNode {
			c.text = collapseSpace(c.text)
		}
	}
	last := len(kids) - 1
	out := make([]*node, 0, len(kids))
	for i, c := range kids {
		if c.kind == textNode {
			if (i == 0 && n.blockContainer()) || (i > 0 && kids[i-1].isBlock()) {
				c.text = strings.TrimLeft(c.text, " ")
			}
			if (i == last && n.blockContainer()) || (i < last && kids[i+1].isBlock()) {
				c.text = strings.TrimRight(c.text, " ")
			}
			if c.text == "" {
				continue
			}
		}
		out = append(out, c)
	}
	n.children = out
	for _, c := range n.children {
		if c.kind == elementNode {
			normalize(c)
		}
	}
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				b.WriteByte(' ')
				space = true
			}
		default:
			b.WriteByte(s[i])
			space = false
		}
	}
	return b.String()
}
