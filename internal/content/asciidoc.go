package content

import (
	"html"
	"html/template"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

// AsciidocRenderer renders the subset of AsciiDoc used by site pages: the
// document header (title and attribute entries), section titles, paragraphs,
// ordered and unordered lists, listing, literal and quote blocks, thematic
// breaks, images, admonition paragraphs and the common inline formatting.
type AsciidocRenderer struct{}

func NewAsciidocRenderer() *AsciidocRenderer { return &AsciidocRenderer{} }

func (r *AsciidocRenderer) Render(path string, src []byte) (*Document, error) {
	lines := splitLines(string(src))
	header, rest := parseHeader(lines)

	created, err := frontmatter.ParseDate(firstNonEmpty(header.attrs["created"], header.attrs["revdate"], header.attrs["date"]))
	if err != nil {
		return nil, renderError(err, path, "parse created date")
	}
	updated, err := frontmatter.ParseDate(header.attrs["updated"])
	if err != nil {
		return nil, renderError(err, path, "parse updated date")
	}

	var b strings.Builder
	renderBlocks(&b, rest)

	_, draft := header.attrs["draft"]
	return &Document{
		Frontmatter: site.Frontmatter{
			Title:       header.title,
			Description: header.attrs["description"],
			Created:     created,
			Updated:     updated,
		},
		Body:  template.HTML(b.String()), // #nosec G203 -- text is escaped by inline()
		Draft: draft,
	}, nil
}

type docHeader struct {
	title string
	attrs map[string]string
}

var attrEntry = regexp.MustCompile(`^:([A-Za-z0-9_][A-Za-z0-9_-]*)!?:\s*(.*)$`)

// parseHeader consumes the title line, an optional author/revision line and
// attribute entries up to the first blank line.
func parseHeader(lines []string) (docHeader, []string) {
	h := docHeader{attrs: make(map[string]string)}
	i := 0
	for i < len(lines) && (strings.TrimSpace(lines[i]) == "" || isLineComment(lines[i])) {
		i++
	}
	start := i
	if i < len(lines) && strings.HasPrefix(lines[i], "= ") {
		h.title = strings.TrimSpace(lines[i][2:])
		i++
	}
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			break
		}
		if isLineComment(line) {
			continue
		}
		if m := attrEntry.FindStringSubmatch(line); m != nil {
			h.attrs[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
			continue
		}
		if h.title != "" && i <= start+2 && !strings.HasPrefix(line, "=") {
			// author or revision line
			continue
		}
		break
	}
	return h, lines[i:]
}

const (
	listingDelim = "----"
	literalDelim = "...."
	quoteDelim   = "____"
	commentDelim = "////"
)

var admonitions = map[string]string{
	"NOTE":      "Note",
	"TIP":       "Tip",
	"IMPORTANT": "Important",
	"WARNING":   "Warning",
	"CAUTION":   "Caution",
}

type pending struct {
	id    string
	title string
	attrs string
}

func (p *pending) reset() { *p = pending{} }

func renderBlocks(b *strings.Builder, lines []string) {
	var pend pending
	for i := 0; i < len(lines); {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			i++
			continue
		case trimmed == commentDelim:
			i = skipDelimited(lines, i, commentDelim)
			continue
		case isLineComment(line):
			i++
			continue
		case strings.HasPrefix(trimmed, "[[") && strings.HasSuffix(trimmed, "]]"):
			pend.id = strings.TrimSpace(trimmed[2 : len(trimmed)-2])
			i++
			continue
		case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"):
			pend.attrs = trimmed[1 : len(trimmed)-1]
			if id, ok := strings.CutPrefix(pend.attrs, "#"); ok {
				pend.id = id
			}
			i++
			continue
		case isBlockTitle(trimmed):
			pend.title = trimmed[1:]
			i++
			continue
		}

		if level, text, ok := sectionTitle(line); ok {
			id := pend.id
			if id == "" {
				id = sectionID(text)
			}
			tag := "h" + strconv.Itoa(level)
			b.WriteString("<" + tag + ` id="` + html.EscapeString(id) + `">` + inline(text) + "</" + tag + ">\n")
			pend.reset()
			i++
			continue
		}

		switch {
		case trimmed == "'''":
			b.WriteString("<hr>\n")
			i++
		case trimmed == listingDelim:
			end := findClose(lines, i, listingDelim)
			writeTitle(b, pend.title)
			class := ""
			if lang := sourceLanguage(pend.attrs); lang != "" {
				class = ` class="language-` + html.EscapeString(lang) + `"`
			}
			b.WriteString("<pre><code" + class + ">" + html.EscapeString(strings.Join(lines[i+1:end], "\n")) + "</code></pre>\n")
			i = end + 1
		case trimmed == literalDelim:
			end := findClose(lines, i, literalDelim)
			writeTitle(b, pend.title)
			b.WriteString("<pre>" + html.EscapeString(strings.Join(lines[i+1:end], "\n")) + "</pre>\n")
			i = end + 1
		case trimmed == quoteDelim:
			end := findClose(lines, i, quoteDelim)
			writeTitle(b, pend.title)
			b.WriteString("<blockquote>\n")
			renderBlocks(b, lines[i+1:end])
			b.WriteString("</blockquote>\n")
			i = end + 1
		case strings.HasPrefix(trimmed, "image::"):
			writeTitle(b, pend.title)
			target, alt := macroParts(trimmed[len("image::"):])
			b.WriteString(`<div class="imageblock"><img src="` + html.EscapeString(target) + `" alt="` + html.EscapeString(altText(alt, target)) + `"></div>` + "\n")
			i++
		case isListItem(trimmed):
			end := i
			for end < len(lines) && strings.TrimSpace(lines[end]) != "" {
				end++
			}
			writeTitle(b, pend.title)
			b.WriteString(renderList(collectItems(lines[i:end])))
			i = end
		default:
			end := i
			for end < len(lines) && !endsParagraph(lines[end]) {
				end++
			}
			if end == i {
				end = i + 1
			}
			writeTitle(b, pend.title)
			writeParagraph(b, lines[i:end])
			i = end
		}
		pend.reset()
	}
}

func writeTitle(b *strings.Builder, title string) {
	if title != "" {
		b.WriteString(`<div class="title">` + inline(title) + "</div>\n")
	}
}

func writeParagraph(b *strings.Builder, lines []string) {
	parts := make([]string, len(lines))
	for i, l := range lines {
		l = strings.TrimSpace(l)
		if hard, ok := strings.CutSuffix(l, " +"); ok {
			parts[i] = inline(hard) + "<br>"
			continue
		}
		parts[i] = inline(l)
	}
	text := strings.Join(parts, "\n")

	if label, body, ok := strings.Cut(strings.TrimSpace(lines[0]), ": "); ok {
		if name, known := admonitions[label]; known {
			rest := append([]string{inline(body)}, parts[1:]...)
			b.WriteString(`<div class="admonition ` + strings.ToLower(label) + `"><p><strong>` + name + "</strong> " + strings.Join(rest, "\n") + "</p></div>\n")
			return
		}
	}
	b.WriteString("<p>" + text + "</p>\n")
}

// endsParagraph reports whether line terminates a running paragraph.
func endsParagraph(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || isLineComment(line) {
		return true
	}
	switch trimmed {
	case listingDelim, literalDelim, quoteDelim, commentDelim, "'''":
		return true
	}
	if _, _, ok := sectionTitle(line); ok {
		return true
	}
	return strings.HasPrefix(trimmed, "image::")
}

func isLineComment(line string) bool {
	return strings.HasPrefix(line, "//") && !strings.HasPrefix(line, commentDelim)
}

func isBlockTitle(trimmed string) bool {
	return len(trimmed) > 1 && trimmed[0] == '.' && trimmed[1] != '.' && trimmed[1] != ' '
}

// sectionTitle recognizes "== Title" through "====== Title".
func sectionTitle(line string) (level int, text string, ok bool) {
	n := 0
	for n < len(line) && line[n] == '=' {
		n++
	}
	if n < 1 || n > 6 || len(line) <= n+1 || line[n] != ' ' {
		return 0, "", false
	}
	return n, strings.TrimSpace(line[n+1:]), true
}

// sectionID derives an anchor the way AsciiDoc processors do by default:
// lower case, non-word runs collapsed to "_", prefixed with "_".
func sectionID(text string) string {
	var b strings.Builder
	b.WriteByte('_')
	sep := true
	for _, r := range strings.ToLower(stripTags(inline(text))) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			sep = false
			continue
		}
		if !sep {
			b.WriteByte('_')
			sep = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}

func skipDelimited(lines []string, i int, delim string) int {
	return findClose(lines, i, delim) + 1
}

// findClose returns the index of the closing delimiter, or len(lines) when the
// block runs to the end of the document.
func findClose(lines []string, open int, delim string) int {
	for j := open + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) == delim {
			return j
		}
	}
	return len(lines)
}

func sourceLanguage(attrs string) string {
	parts := strings.Split(attrs, ",")
	if len(parts) >= 2 && strings.TrimSpace(parts[0]) == "source" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// macroParts splits "target[attrs]".
func macroParts(s string) (target, attrs string) {
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return s, ""
	}
	return s[:open], s[open+1 : len(s)-1]
}

func altText(attrs, target string) string {
	alt, _, _ := strings.Cut(attrs, ",")
	if alt = strings.TrimSpace(alt); alt != "" {
		return alt
	}
	base := target[strings.LastIndexByte(target, '/')+1:]
	if dot := strings.LastIndexByte(base, '.'); dot > 0 {
		base = base[:dot]
	}
	return strings.NewReplacer("-", " ", "_", " ").Replace(base)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

var listMarker = regexp.MustCompile(`^(\*{1,5}|-|\.{1,5})\s+(\S.*)$`)

type listItem struct {
	ordered bool
	depth   int
	text    string
}

func isListItem(trimmed string) bool {
	return listMarker.MatchString(trimmed)
}

// collectItems folds continuation lines into the preceding item.
func collectItems(lines []string) []listItem {
	var items []listItem
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := listMarker.FindStringSubmatch(trimmed); m != nil {
			depth := len(m[1])
			items = append(items, listItem{ordered: m[1][0] == '.', depth: depth, text: m[2]})
			continue
		}
		if len(items) == 0 || trimmed == "+" {
			continue
		}
		items[len(items)-1].text += " " + trimmed
	}
	return items
}

// renderList nests items by marker depth. A change of list kind at the same
// depth closes the running list and opens a new one.
func renderList(items []listItem) string {
	type frame struct {
		ordered bool
		depth   int
	}
	tag := func(ordered bool) string {
		if ordered {
			return "ol"
		}
		return "ul"
	}

	var b strings.Builder
	var stack []frame
	pop := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b.WriteString("</li>\n</" + tag(top.ordered) + ">\n")
	}

	for _, it := range items {
		for len(stack) > 0 && stack[len(stack)-1].depth > it.depth {
			pop()
		}
		if len(stack) > 0 && stack[len(stack)-1].depth == it.depth && stack[len(stack)-1].ordered != it.ordered {
			pop()
		}
		if len(stack) == 0 || stack[len(stack)-1].depth < it.depth {
			b.WriteString("<" + tag(it.ordered) + ">\n")
			stack = append(stack, frame{ordered: it.ordered, depth: it.depth})
		} else {
			b.WriteString("</li>\n")
		}
		b.WriteString("<li>" + inline(it.text))
	}
	for len(stack) > 0 {
		pop()
	}
	return b.String()
}
