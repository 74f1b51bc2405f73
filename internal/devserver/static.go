package devserver

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

const defaultMIME = "application/octet-stream"

var mimeTypes = map[string]string{
	".html":        "text/html; charset=utf-8",
	".htm":         "text/html; charset=utf-8",
	".css":         "text/css; charset=utf-8",
	".js":          "text/javascript; charset=utf-8",
	".json":        "application/json",
	".xml":         "application/xml",
	".txt":         "text/plain; charset=utf-8",
	".ico":         "image/x-icon",
	".png":         "image/png",
	".jpg":         "image/jpeg",
	".jpeg":        "image/jpeg",
	".gif":         "image/gif",
	".svg":         "image/svg+xml",
	".webp":        "image/webp",
	".avif":        "image/avif",
	".wav":         "audio/wav",
	".mp4":         "video/mp4",
	".woff":        "font/woff",
	".woff2":       "font/woff2",
	".ttf":         "font/ttf",
	".otf":         "font/otf",
	".eot":         "application/vnd.ms-fontobject",
	".wasm":        "application/wasm",
	".pdf":         "application/pdf",
	".webmanifest": "application/manifest+json",
}

// MIMEType maps a file name to its Content-Type by extension.
func MIMEType(name string) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return defaultMIME
}

const builtinNotFound = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>404 Not Found</title></head>
<body><h1>404 Not Found</h1></body>
</html>
`

// staticHandler serves the output directory with the live-reload client
// injected into every HTML response.
type staticHandler struct {
	root   string
	script []byte
}

func newStaticHandler(root string, liveReloadPort int) *staticHandler {
	return &staticHandler{
		root:   root,
		script: fmt.Appendf(nil, `<script src="http://localhost:%d/livereload.js"></script>`, liveReloadPort),
	}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name, data, err := h.read(r.URL.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		h.notFound(w, r)
		return
	case err != nil:
		slog.Warn("Failed to serve file", logfields.Path(r.URL.Path), logfields.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.write(w, r, http.StatusOK, MIMEType(name), data)
}

// read resolves a request path below root: "/" and paths ending in "/" map
// to index.html, and a directory maps to its index.html.
func (h *staticHandler) read(urlPath string) (string, []byte, error) {
	rel := path.Clean("/" + urlPath)
	if strings.HasSuffix(urlPath, "/") {
		rel = path.Join(rel, "index.html")
	}
	name := filepath.Join(h.root, filepath.FromSlash(rel))

	info, err := os.Stat(name)
	if err != nil {
		return "", nil, err
	}
	if info.IsDir() {
		name = filepath.Join(name, "index.html")
	}
	data, err := os.ReadFile(name) // #nosec G304 -- confined to the output directory by path.Clean
	return name, data, err
}

func (h *staticHandler) notFound(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(filepath.Join(h.root, "404", "index.html"))
	if err != nil {
		data = []byte(builtinNotFound)
	}
	h.write(w, r, http.StatusNotFound, mimeTypes[".html"], data)
}

func (h *staticHandler) write(w http.ResponseWriter, r *http.Request, status int, mime string, data []byte) {
	if strings.HasPrefix(mime, "text/html") {
		data = injectScript(data, h.script)
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		slog.Debug("Failed to write response", logfields.Path(r.URL.Path), logfields.Error(err))
	}
}

// injectScript places script before the last </body>, or appends it when
// the document has none.
func injectScript(page, script []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	out := make([]byte, 0, len(page)+len(script)+1)
	if idx < 0 {
		out = append(out, page...)
		if len(out) > 0 && out[len(out)-1] != '\n' {
			out = append(out, '\n')
		}
		return append(out, script...)
	}
	out = append(out, page[:idx]...)
	out = append(out, script...)
	return append(out, page[idx:]...)
}
