// Package frontmatter splits and decodes the YAML header of Markdown sources.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Header is the subset of frontmatter fields a page is rendered with.
type Header struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Created     string `yaml:"created"`
	Date        string `yaml:"date"`
	Updated     string `yaml:"updated"`
	Draft       bool   `yaml:"draft"`
}

// Split separates YAML frontmatter (`---` delimited) from the body.
//
// If the document does not start with a delimiter line, had is false and body
// is the full input. CRLF sources are handled.
func Split(content []byte) (fm []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// A closing delimiter on the last line without a trailing newline.
		if bytes.HasSuffix(content, []byte(nl+"---")) {
			end := len(content) - len("---")
			return content[start:end], []byte{}, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}

	end := start + idx + len(nl)
	return content[start:end], content[start+idx+len(closeSeq):], true, nil
}

// Decode parses raw frontmatter (without delimiters) into a Header.
func Decode(fm []byte) (Header, error) {
	var h Header
	if len(bytes.TrimSpace(fm)) == 0 {
		return h, nil
	}
	if err := yaml.Unmarshal(fm, &h); err != nil {
		return Header{}, fmt.Errorf("decode frontmatter: %w", err)
	}
	return h, nil
}

// CreatedAt returns the creation date, accepting "created" or "date".
func (h Header) CreatedAt() (time.Time, error) {
	if h.Created != "" {
		return ParseDate(h.Created)
	}
	return ParseDate(h.Date)
}

// UpdatedAt returns the parsed "updated" date.
func (h Header) UpdatedAt() (time.Time, error) {
	return ParseDate(h.Updated)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate accepts the date formats commonly written in document headers. An
// empty string yields the zero time.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
