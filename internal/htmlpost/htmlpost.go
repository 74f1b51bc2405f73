// Package htmlpost normalizes generated HTML before it is written: readable
// indentation during development, minified output in production.
//
// Both forms are stable: feeding the output back through WriteHTML with the
// same mode returns it unchanged.
package htmlpost

import (
	"log/slog"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Script bodies are left as written: no JavaScript minifier is registered.
var minifier = func() *minify.M {
	m := minify.New()
	m.Add("text/html", &minhtml.Minifier{KeepDocumentTags: true})
	m.AddFunc("text/css", css.Minify)
	return m
}()

// WriteHTML pretty-prints src, or minifies it when production is set.
//
// Pretty-printing puts block elements on their own lines with a two-space
// indent and keeps inline runs on one line. Content of pre, script, style,
// textarea and title is never reflowed.
func WriteHTML(src string, production bool) string {
	if production {
		return minified(src)
	}
	return pretty(parse(src))
}

func minified(src string) string {
	out, err := minifier.String("text/html", src)
	if err != nil {
		slog.Debug("HTML minification failed, keeping source", logfields.Error(err))
		return src
	}
	return out
}

var documentStart = regexp.MustCompile(`(?is)^\s*(<!--.*?-->\s*)*<(!doctype|html[\s>])`)

func isDocument(src string) bool {
	return documentStart.MatchString(src)
}
