// Package devserver serves the built site locally, watches the sources and
// rebuilds what changed, telling connected browsers to reload.
//
// Static files are served on one port and the live-reload push channel
// (Server-Sent Events) on another. File changes are debounced and coalesced
// into a single rebuild worker, so rebuilds never overlap; a failed rebuild is
// logged and the previous output keeps being served.
package devserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/sitegen/internal/config"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/observability"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

// State is the lifecycle state of a Server.
type State int32

const (
	StateIdle State = iota
	StateWatching
	StateRebuilding
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateRebuilding:
		return "rebuilding"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a Server.
type Options struct {
	Host           string
	Port           int
	LiveReloadPort int

	// MetricsAddr, when set together with MetricsHandler, serves the handler
	// at /metrics on that address.
	MetricsAddr    string
	MetricsHandler http.Handler

	Debounce        time.Duration
	RebuildInterval time.Duration
	Recorder        metrics.Recorder

	// AfterRebuild, if set, is called by the rebuild worker after each rebuild.
	AfterRebuild func(kind Kind, err error)
}

// OptionsFromConfig maps the server section of cfg onto Options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		LiveReloadPort:  cfg.Server.LiveReloadPort,
		MetricsAddr:     cfg.Server.MetricsAddr,
		Debounce:        cfg.Server.DebounceDuration(),
		RebuildInterval: cfg.Server.RebuildEvery(),
	}
}

// Server is the development server.
type Server struct {
	site    *site.Site
	builder Builder
	opts    Options
	hub     *Hub
	state   atomic.Int32

	servers   []*http.Server
	listeners []net.Listener
	httpLn    net.Listener
	lrLn      net.Listener

	closeOnce sync.Once
	closed    chan struct{}
	serveErr  chan error
}

// New binds the static and push-channel listeners (and the metrics listener
// when configured). Nothing is served until Run.
func New(s *site.Site, b Builder, opts Options) (*Server, error) {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}

	srv := &Server{
		site:     s,
		builder:  b,
		opts:     opts,
		hub:      NewHub(opts.Recorder),
		closed:   make(chan struct{}),
		serveErr: make(chan error, 3),
	}

	var err error
	if srv.httpLn, err = srv.listen(opts.Host, opts.Port); err != nil {
		return nil, err
	}
	if srv.lrLn, err = srv.listen(opts.Host, opts.LiveReloadPort); err != nil {
		srv.closeListeners()
		return nil, err
	}
	lrPort := srv.lrLn.Addr().(*net.TCPAddr).Port

	srv.servers = append(srv.servers, &http.Server{
		Handler:           newStaticHandler(s.Config().Out, lrPort),
		ReadHeaderTimeout: 10 * time.Second,
	})

	lr := http.NewServeMux()
	lr.Handle("/livereload", cors(srv.hub))
	lr.Handle("/livereload.js", cors(ScriptHandler(lrPort)))
	// No write timeout: SSE streams stay open.
	srv.servers = append(srv.servers, &http.Server{
		Handler:           lr,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       300 * time.Second,
	})

	if opts.MetricsAddr != "" && opts.MetricsHandler != nil {
		ln, err := net.Listen("tcp", opts.MetricsAddr)
		if err != nil {
			srv.closeListeners()
			return nil, listenError(err, opts.MetricsAddr)
		}
		srv.listeners = append(srv.listeners, ln)
		mux := http.NewServeMux()
		mux.Handle("/metrics", opts.MetricsHandler)
		srv.servers = append(srv.servers, &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second})
	}
	return srv, nil
}

func (s *Server) listen(host string, port int) (net.Listener, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, listenError(err, addr)
	}
	s.listeners = append(s.listeners, ln)
	return ln, nil
}

func listenError(err error, addr string) error {
	return ferrors.WrapError(err, ferrors.CategoryServer, "listen").
		WithContext("addr", addr).
		Fatal().
		Build()
}

// Addr is the address static files are served on.
func (s *Server) Addr() string { return s.httpLn.Addr().String() }

// LiveReloadAddr is the address of the push channel.
func (s *Server) LiveReloadAddr() string { return s.lrLn.Addr().String() }

// State returns the current lifecycle state.
func (s *Server) State() State { return State(s.state.Load()) }

// Run serves and watches until ctx is done or the server is closed. It may
// be called once.
func (s *Server) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateWatching)) {
		return ferrors.ServerError("dev server is not idle").
			WithContext("state", s.State().String()).
			Build()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryServer, "create file watcher").Build()
	}
	defer func() { _ = watcher.Close() }()

	cfg := s.site.Config()
	out, _ := filepath.Abs(cfg.Out)
	roots := watchRoots(cfg)
	for _, r := range roots {
		addWatches(watcher, r, out)
	}

	for i, srv := range s.servers {
		s.serve(srv, s.listeners[i])
	}
	observability.InfoContext(ctx, "Serving site",
		logfields.Addr("http://"+s.Addr()+"/"), slog.String("livereload", s.LiveReloadAddr()))

	ctx, cancel := context.WithCancel(ctx)
	rb := newRebuilder(s.opts.Debounce, s.rebuild)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rb.run(ctx)
	}()
	defer func() {
		rb.stop()
		cancel()
		wg.Wait()
	}()

	sched, err := s.schedule(rb)
	if err != nil {
		return err
	}
	if sched != nil {
		defer func() { _ = sched.Shutdown() }()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.closed:
			return nil
		case err := <-s.serveErr:
			return err
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, watcher, roots, out, ev, rb)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			observability.WarnContext(ctx, "File watcher error", logfields.Error(err))
		}
	}
}

func (s *Server) handleEvent(ctx context.Context, w *fsnotify.Watcher, roots []watchRoot, out string, ev fsnotify.Event, rb *rebuilder) {
	if ev.Op == fsnotify.Chmod || shouldIgnoreEvent(ev.Name) {
		return
	}
	name, err := filepath.Abs(ev.Name)
	if err != nil || (out != "" && within(out, name)) {
		return
	}
	root, ok := classify(roots, name)
	if !ok {
		return
	}
	if ev.Has(fsnotify.Create) && root.recursive {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			addDirsRecursive(w, name, out)
		}
	}
	observability.DebugContext(ctx, "Change detected",
		logfields.Path(name), logfields.Op(ev.Op.String()), logfields.Kind(root.kind.String()))
	rb.request(root.kind)
}

// schedule starts the periodic full rebuild, if configured.
func (s *Server) schedule(rb *rebuilder) (gocron.Scheduler, error) {
	if s.opts.RebuildInterval <= 0 {
		return nil, nil
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryServer, "create scheduler").Build()
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.opts.RebuildInterval),
		gocron.NewTask(func() { rb.request(KindFull) }),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, ferrors.WrapError(err, ferrors.CategoryServer, "schedule periodic rebuild").Build()
	}
	sched.Start()
	return sched, nil
}

func (s *Server) serve(srv *http.Server, ln net.Listener) {
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.serveErr <- ferrors.WrapError(err, ferrors.CategoryServer, "serve").
				WithContext("addr", ln.Addr().String()).
				Build():
			default:
			}
		}
	}()
}

// Shutdown tells push clients the server is going away, drains in-flight
// requests until ctx is done and closes the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Shutdown()
	var errs []error
	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, s.Close())
	return errors.Join(errs...)
}

// Close closes every listener and stops Run. The server cannot be reused.
func (s *Server) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		close(s.closed)
		s.hub.Close()
		for _, srv := range s.servers {
			if err := srv.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.closeListeners()
	})
	return errors.Join(errs...)
}

func (s *Server) closeListeners() {
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
}
