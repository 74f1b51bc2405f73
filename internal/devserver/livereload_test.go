package devserver

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseClient struct {
	resp   *http.Response
	reader *bufio.Reader
}

func connectSSE(t *testing.T, url string) *sseClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	c := &sseClient{resp: resp, reader: bufio.NewReader(resp.Body)}
	line, err := c.reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)
	return c
}

// next returns the payload of the next data event.
func (c *sseClient) next(t *testing.T) string {
	t.Helper()
	for {
		line, err := c.reader.ReadString('\n')
		require.NoError(t, err)
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			return strings.TrimSpace(data)
		}
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastReload(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	server := httptest.NewServer(hub)
	defer server.Close()

	a := connectSSE(t, server.URL)
	b := connectSSE(t, server.URL)
	waitClients(t, hub, 2)

	hub.Broadcast(MessageReload)
	assert.Equal(t, "reload", a.next(t))
	assert.Equal(t, "reload", b.next(t))
}

func TestHub_ShutdownNotifiesAndDisconnects(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()

	c := connectSSE(t, server.URL)
	waitClients(t, hub, 1)

	hub.Shutdown()
	assert.Equal(t, "shutdown", c.next(t))
	assert.Zero(t, hub.Clients())

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	hub.Shutdown()
	hub.Broadcast(MessageReload)
}

func TestHub_ClientDisconnectIsRemoved(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	server := httptest.NewServer(hub)
	defer server.Close()

	c := connectSSE(t, server.URL)
	waitClients(t, hub, 1)
	require.NoError(t, c.resp.Body.Close())
	waitClients(t, hub, 0)
}

func TestScriptHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	ScriptHandler(4321).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livereload.js", nil))
	assert.Equal(t, "text/javascript; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "http://localhost:4321/livereload")
	assert.Contains(t, rec.Body.String(), "'shutdown'")
}
