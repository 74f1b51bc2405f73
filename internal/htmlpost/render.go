package htmlpost

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"
)

// pretty renders the tree with block elements on their own lines, indented
// two spaces per level. Runs of inline content stay on one line.
func pretty(root *node) string {
	var lines []string
	prettyChildren(&lines, root.children, 0)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func prettyChildren(lines *[]string, kids []*node, depth int) {
	indent := strings.Repeat("  ", depth)
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			*lines = append(*lines, indent+run.String())
			run.Reset()
		}
	}
	for _, c := range kids {
		if !c.isBlock() {
			writeInline(&run, c)
			continue
		}
		flush()
		prettyBlock(lines, c, depth)
	}
	flush()
}

func prettyBlock(lines *[]string, n *node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.kind == doctypeNode {
		*lines = append(*lines, indent+"<!DOCTYPE "+n.text+">")
		return
	}
	if n.verbatim || !hasBlockChild(n) {
		var b strings.Builder
		writeInline(&b, n)
		*lines = append(*lines, indent+b.String())
		return
	}
	var open strings.Builder
	writeOpenTag(&open, n)
	*lines = append(*lines, indent+open.String())
	prettyChildren(lines, n.children, depth+1)
	*lines = append(*lines, indent+"</"+n.tag+">")
}

func hasBlockChild(n *node) bool {
	for _, c := range n.children {
		if c.isBlock() {
			return true
		}
	}
	return false
}

// writeInline renders n and its subtree without line breaks of its own.
func writeInline(b *strings.Builder, n *node) {
	switch n.kind {
	case textNode, commentNode:
		b.WriteString(n.text)
	case doctypeNode:
		b.WriteString("<!DOCTYPE " + n.text + ">")
	case elementNode:
		if n.foreign && len(n.children) == 0 {
			writeStartTag(b, n)
			b.WriteString("/>")
			return
		}
		writeOpenTag(b, n)
		if voidTags[n.tag] && !n.foreign {
			return
		}
		if n.verbatim {
			b.WriteString(n.text)
		} else {
			for _, c := range n.children {
				writeInline(b, c)
			}
		}
		b.WriteString("</" + n.tag + ">")
	}
}

func writeOpenTag(b *strings.Builder, n *node) {
	writeStartTag(b, n)
	b.WriteString(">")
}

// writeStartTag writes "<tag attrs" without the closing bracket. Values are
// always quoted.
func writeStartTag(b *strings.Builder, n *node) {
	b.WriteString("<" + n.tag)
	for _, a := range n.attrs {
		writeAttr(b, a)
	}
}

func writeAttr(b *strings.Builder, a xhtml.Attribute) {
	name := a.Key
	if a.Namespace != "" {
		name = a.Namespace + ":" + a.Key
	}
	if a.Val == "" && booleanAttrs[name] {
		b.WriteString(" " + name)
		return
	}
	b.WriteString(" " + name + `="` + html.EscapeString(a.Val) + `"`)
}
