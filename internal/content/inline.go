package content

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	codeSpan    = regexp.MustCompile("`([^`\n]+)`")
	xref        = regexp.MustCompile(`<<([A-Za-z0-9_\-]+)(?:,\s*([^>]+))?>>`)
	linkMacro   = regexp.MustCompile(`link:([^\s\[]+)\[([^\]]*)\]`)
	urlWithText = regexp.MustCompile(`(https?://[^\s\[<>]+)\[([^\]]*)\]`)
	bareURL     = regexp.MustCompile(`https?://[^\s\[<>]+`)
	inlineImage = regexp.MustCompile(`image:([^\s\[:][^\s\[]*)\[([^\]]*)\]`)
	strongPair  = regexp.MustCompile(`\*\*(.+?)\*\*`)
	emPair      = regexp.MustCompile(`__(.+?)__`)
)

// inline escapes text and applies AsciiDoc inline formatting. Code spans and
// macros are swapped for placeholders first so their content is neither
// escaped twice nor formatted.
func inline(text string) string {
	var held []string
	hold := func(rendered string) string {
		held = append(held, rendered)
		return "\x00" + strconv.Itoa(len(held)-1) + "\x00"
	}

	text = codeSpan.ReplaceAllStringFunc(text, func(m string) string {
		return hold("<code>" + html.EscapeString(m[1:len(m)-1]) + "</code>")
	})
	text = xref.ReplaceAllStringFunc(text, func(m string) string {
		sub := xref.FindStringSubmatch(m)
		label := sub[2]
		if label == "" {
			label = sub[1]
		}
		return hold(`<a href="#` + html.EscapeString(sub[1]) + `">` + formatText(html.EscapeString(label)) + "</a>")
	})
	text = inlineImage.ReplaceAllStringFunc(text, func(m string) string {
		sub := inlineImage.FindStringSubmatch(m)
		return hold(`<img src="` + html.EscapeString(sub[1]) + `" alt="` + html.EscapeString(altText(sub[2], sub[1])) + `">`)
	})
	link := func(re *regexp.Regexp) func(string) string {
		return func(m string) string {
			sub := re.FindStringSubmatch(m)
			label := sub[2]
			if label == "" {
				label = sub[1]
			}
			return hold(`<a href="` + html.EscapeString(sub[1]) + `">` + formatText(html.EscapeString(label)) + "</a>")
		}
	}
	text = linkMacro.ReplaceAllStringFunc(text, link(linkMacro))
	text = urlWithText.ReplaceAllStringFunc(text, link(urlWithText))
	text = bareURL.ReplaceAllStringFunc(text, func(m string) string {
		trimmed := strings.TrimRight(m, ".,;:!?)")
		return hold(`<a href="`+html.EscapeString(trimmed)+`">`+html.EscapeString(trimmed)+"</a>") + m[len(trimmed):]
	})

	out := formatText(html.EscapeString(text))

	for i := len(held) - 1; i >= 0; i-- {
		out = strings.ReplaceAll(out, "\x00"+strconv.Itoa(i)+"\x00", held[i])
	}
	return out
}

// formatText applies bold and italic to already escaped text.
func formatText(s string) string {
	s = strongPair.ReplaceAllString(s, "<strong>$1</strong>")
	s = emPair.ReplaceAllString(s, "<em>$1</em>")
	s = constrained(s, '*', "strong")
	return constrained(s, '_', "em")
}

// constrained wraps mark-delimited runs that start and end at word boundaries,
// so snake_case and 2*3*4 are left alone.
func constrained(s string, mark byte, tag string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != mark || !boundaryBefore(s, i) || i+1 >= len(s) || s[i+1] == ' ' || s[i+1] == mark {
			b.WriteByte(s[i])
			i++
			continue
		}
		end := -1
		for j := i + 2; j < len(s); j++ {
			if s[j] == mark && s[j-1] != ' ' && boundaryAfter(s, j) {
				end = j
				break
			}
		}
		if end < 0 {
			b.WriteByte(s[i])
			i++
			continue
		}
		b.WriteString("<" + tag + ">" + s[i+1:end] + "</" + tag + ">")
		i = end + 1
	}
	return b.String()
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i+1 >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i+1:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
