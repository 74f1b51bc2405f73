package devserver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

type fakeBuilder struct {
	mu           sync.Mutex
	calls        []string
	active       int
	maxActive    int
	delay        time.Duration
	started      chan struct{}
	styleChanged bool
	styleErr     error
}

func (f *fakeBuilder) enter(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	started := f.started
	f.mu.Unlock()
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	time.Sleep(f.delay)
}

func (f *fakeBuilder) leave() {
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
}

func (f *fakeBuilder) BuildSite(context.Context, *site.Site) (*build.Report, error) {
	f.enter("site")
	defer f.leave()
	return &build.Report{Status: build.BuildStatusSuccess}, nil
}

func (f *fakeBuilder) RenderStyles(context.Context, *site.Site) (bool, error) {
	f.enter("styles")
	defer f.leave()
	return f.styleChanged, f.styleErr
}

func (f *fakeBuilder) RenderPages(context.Context, *site.Site) error {
	f.enter("pages")
	defer f.leave()
	return nil
}

func (f *fakeBuilder) snapshot() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...), f.maxActive
}

type rebuildEvent struct {
	kind Kind
	err  error
}

func newTestServer(b Builder) (*Server, chan rebuildEvent) {
	done := make(chan rebuildEvent, 16)
	s := &Server{
		site:    site.New(config.Default()),
		builder: b,
		hub:     NewHub(nil),
		closed:  make(chan struct{}),
	}
	s.opts = Options{
		Recorder:     metrics.NoopRecorder{},
		AfterRebuild: func(k Kind, err error) { done <- rebuildEvent{k, err} },
	}
	s.state.Store(int32(StateWatching))
	return s, done
}

func waitRebuild(t *testing.T, done <-chan rebuildEvent) rebuildEvent {
	t.Helper()
	select {
	case ev := <-done:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rebuild")
		return rebuildEvent{}
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "styles", KindStyles.String())
	assert.Equal(t, "pages", KindPages.String())
	assert.Equal(t, "styles+pages", (KindStyles | KindPages).String())
	assert.Equal(t, "full", (KindFull | KindPages).String())
	assert.Equal(t, "none", Kind(0).String())
}

func TestRebuilder_CoalescesBurst(t *testing.T) {
	fb := &fakeBuilder{}
	s, done := newTestServer(fb)
	rb := newRebuilder(30*time.Millisecond, s.rebuild)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go rb.run(ctx)

	rb.request(KindStyles)
	rb.request(KindPages)
	rb.request(KindStyles)

	ev := waitRebuild(t, done)
	assert.Equal(t, KindStyles|KindPages, ev.kind)
	require.NoError(t, ev.err)

	calls, _ := fb.snapshot()
	assert.Equal(t, []string{"styles", "pages"}, calls)
}

func TestRebuilder_FullSubsumesPartial(t *testing.T) {
	fb := &fakeBuilder{}
	s, done := newTestServer(fb)
	rb := newRebuilder(30*time.Millisecond, s.rebuild)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go rb.run(ctx)

	rb.request(KindPages)
	rb.request(KindFull)

	ev := waitRebuild(t, done)
	assert.Equal(t, "full", ev.kind.String())
	calls, _ := fb.snapshot()
	assert.Equal(t, []string{"site"}, calls)
}

func TestRebuilder_NeverOverlaps(t *testing.T) {
	fb := &fakeBuilder{delay: 100 * time.Millisecond, started: make(chan struct{}, 1)}
	s, done := newTestServer(fb)
	rb := newRebuilder(5*time.Millisecond, s.rebuild)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go rb.run(ctx)

	rb.request(KindPages)
	<-fb.started
	for range 5 {
		rb.request(KindFull)
		time.Sleep(5 * time.Millisecond)
	}

	assert.Equal(t, KindPages, waitRebuild(t, done).kind)
	assert.Equal(t, KindFull, waitRebuild(t, done).kind)

	calls, maxActive := fb.snapshot()
	assert.Equal(t, 1, maxActive)
	assert.Equal(t, []string{"pages", "site"}, calls)
}

func TestRebuild_StyleNameChangeRendersPages(t *testing.T) {
	fb := &fakeBuilder{styleChanged: true}
	s, done := newTestServer(fb)

	s.rebuild(t.Context(), KindStyles)
	require.NoError(t, waitRebuild(t, done).err)
	calls, _ := fb.snapshot()
	assert.Equal(t, []string{"styles", "pages"}, calls)
	assert.Equal(t, StateWatching, s.State())
}

func TestRebuild_FailureKeepsWatching(t *testing.T) {
	fb := &fakeBuilder{styleErr: errors.New("sass: syntax error")}
	s, done := newTestServer(fb)

	s.rebuild(t.Context(), KindStyles|KindPages)
	ev := waitRebuild(t, done)
	require.Error(t, ev.err)
	assert.Contains(t, ev.err.Error(), "syntax error")
	calls, _ := fb.snapshot()
	assert.Equal(t, []string{"styles", "pages"}, calls)
	assert.Equal(t, StateWatching, s.State())
}

func TestRebuild_SkippedWhenClosed(t *testing.T) {
	fb := &fakeBuilder{}
	s, done := newTestServer(fb)
	s.state.Store(int32(StateClosed))

	s.rebuild(t.Context(), KindFull)
	assert.Empty(t, done)
	calls, _ := fb.snapshot()
	assert.Empty(t, calls)
}
