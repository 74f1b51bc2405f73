package htmlpost

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Elements laid out on their own line when pretty-printing. Whitespace next to
// them is insignificant.
var blockTags = set(
	"html", "head", "body", "title", "meta", "link", "base", "script", "style", "noscript",
	"address", "article", "aside", "blockquote", "details", "summary", "dialog",
	"div", "dl", "dt", "dd", "fieldset", "figcaption", "figure", "footer", "form",
	"h1", "h2", "h3", "h4", "h5", "h6", "header", "hgroup", "hr", "li", "main",
	"menu", "nav", "ol", "p", "pre", "section", "table", "caption", "colgroup",
	"col", "thead", "tbody", "tfoot", "tr", "td", "th", "ul", "option", "optgroup",
	"select", "template",
)

var voidTags = set(
	"area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta",
	"source", "track", "wbr",
)

// Elements whose text children the parser keeps unescaped.
var rawTextTags = set("script", "style", "noscript", "iframe", "xmp", "noembed", "noframes", "plaintext")

// Elements whose content is written back exactly as parsed.
var verbatimTags = set(
	"pre", "listing", "textarea", "title",
	"script", "style", "noscript", "iframe", "xmp", "noembed", "noframes", "plaintext",
)

var booleanAttrs = set(
	"allowfullscreen", "async", "autofocus", "autoplay", "checked", "controls",
	"default", "defer", "disabled", "formnovalidate", "hidden", "inert", "ismap",
	"itemscope", "loop", "multiple", "muted", "nomodule", "novalidate", "open",
	"playsinline", "readonly", "required", "reversed", "selected",
)
