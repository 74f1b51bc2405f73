package devserver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOut(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newOutTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeOut(t, root, "index.html", "<html><body><h1>Home</h1></body></html>")
	writeOut(t, root, "about/index.html", "<html><body>About</body></html>")
	writeOut(t, root, "style.css", "body{}")
	writeOut(t, root, "images/logo.svg", "<svg></svg>")
	writeOut(t, root, "data.bin", "\x00\x01")
	writeOut(t, root, "fragment.html", "<p>no body tag</p>")
	return root
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

const script = `<script src="http://localhost:3001/livereload.js"></script>`

func TestStaticHandler_Routes(t *testing.T) {
	h := newStaticHandler(newOutTree(t), 3001)

	tests := []struct {
		name   string
		target string
		status int
		mime   string
		body   string
	}{
		{"root", "/", http.StatusOK, "text/html; charset=utf-8", "<h1>Home</h1>" + script + "</body>"},
		{"trailing slash", "/about/", http.StatusOK, "text/html; charset=utf-8", "About" + script + "</body>"},
		{"directory", "/about", http.StatusOK, "text/html; charset=utf-8", "About" + script},
		{"css", "/style.css", http.StatusOK, "text/css; charset=utf-8", "body{}"},
		{"svg", "/images/logo.svg", http.StatusOK, "image/svg+xml", "<svg></svg>"},
		{"unknown extension", "/data.bin", http.StatusOK, "application/octet-stream", "\x00\x01"},
		{"no body tag", "/fragment.html", http.StatusOK, "text/html; charset=utf-8", "<p>no body tag</p>\n" + script},
		{"traversal stays inside", "/../../etc/passwd", http.StatusNotFound, "text/html; charset=utf-8", "404 Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.mime, rec.Header().Get("Content-Type"))
			assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestStaticHandler_NonHTMLIsNotInjected(t *testing.T) {
	rec := serve(newStaticHandler(newOutTree(t), 3001), http.MethodGet, "/style.css")
	assert.Equal(t, "body{}", rec.Body.String())
}

func TestStaticHandler_NotFound(t *testing.T) {
	root := newOutTree(t)
	h := newStaticHandler(root, 3001)

	rec := serve(h, http.MethodGet, "/missing/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404 Not Found")
	assert.Contains(t, rec.Body.String(), script)

	writeOut(t, root, "404/index.html", "<html><body>Custom missing</body></html>")
	rec = serve(h, http.MethodGet, "/missing.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Custom missing"+script)
}

func TestStaticHandler_ReadFailure(t *testing.T) {
	// A regular file used as a directory fails with ENOTDIR, not ENOENT.
	rec := serve(newStaticHandler(newOutTree(t), 3001), http.MethodGet, "/style.css/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStaticHandler_Methods(t *testing.T) {
	h := newStaticHandler(newOutTree(t), 3001)

	rec := serve(h, http.MethodPost, "/")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))

	rec = serve(h, http.MethodHead, "/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "6", rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Body.String())
}

func TestInjectScript(t *testing.T) {
	s := []byte("<s/>")
	assert.Equal(t, "<p>a</p><s/></BODY></html>", string(injectScript([]byte("<p>a</p></BODY></html>"), s)))
	assert.Equal(t, "x\n<s/>", string(injectScript([]byte("x"), s)))
	assert.Equal(t, "x\n<s/>", string(injectScript([]byte("x\n"), s)))
	assert.Equal(t, "<s/>", string(injectScript(nil, s)))
}

func TestMIMEType(t *testing.T) {
	assert.Equal(t, "image/png", MIMEType("a/b.PNG"))
	assert.Equal(t, "application/wasm", MIMEType("app.wasm"))
	assert.Equal(t, "application/octet-stream", MIMEType("README"))
	assert.Equal(t, "application/octet-stream", MIMEType("archive.tar.zst"))
}
