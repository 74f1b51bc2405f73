package devserver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/observability"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

// Kind is a set of rebuild requests. Requests are OR-ed together while they
// wait; KindFull subsumes the partial kinds.
type Kind uint8

const (
	KindStyles Kind = 1 << iota
	KindPages
	KindFull
)

func (k Kind) String() string {
	if k&KindFull != 0 {
		return "full"
	}
	var parts []string
	if k&KindStyles != 0 {
		parts = append(parts, "styles")
	}
	if k&KindPages != 0 {
		parts = append(parts, "pages")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Builder is the build surface the dev server drives. *build.Builder
// implements it.
type Builder interface {
	BuildSite(ctx context.Context, s *site.Site) (*build.Report, error)
	RenderStyles(ctx context.Context, s *site.Site) (bool, error)
	RenderPages(ctx context.Context, s *site.Site) error
}

// rebuilder debounces and coalesces rebuild requests. A single worker
// goroutine (run) executes them, so two rebuilds never overlap.
type rebuilder struct {
	debounce time.Duration
	exec     func(ctx context.Context, kind Kind)

	mu      sync.Mutex
	pending Kind
	timer   *time.Timer
	wake    chan struct{}
}

func newRebuilder(debounce time.Duration, exec func(ctx context.Context, kind Kind)) *rebuilder {
	return &rebuilder{debounce: debounce, exec: exec, wake: make(chan struct{}, 1)}
}

// request adds kind to the pending set and restarts the quiet window.
func (r *rebuilder) request(kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending |= kind
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, r.signal)
}

func (r *rebuilder) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *rebuilder) take() Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.pending
	r.pending = 0
	return k
}

func (r *rebuilder) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
}

// run executes pending rebuilds until ctx is done. Requests arriving while a
// rebuild runs are picked up once it finishes.
func (r *rebuilder) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
			if k := r.take(); k != 0 {
				r.exec(ctx, k)
			}
		}
	}
}

// rebuild performs kind against the builder. A style change that alters the
// emitted stylesheet name re-renders pages as well, since every page links
// to it.
func (s *Server) rebuild(ctx context.Context, kind Kind) {
	if !s.state.CompareAndSwap(int32(StateWatching), int32(StateRebuilding)) {
		return
	}
	defer s.state.CompareAndSwap(int32(StateRebuilding), int32(StateWatching))

	ctx = observability.WithRebuild(ctx, kind.String())
	start := time.Now()
	err := s.runRebuild(ctx, kind)
	d := time.Since(start)
	s.opts.Recorder.ObserveRebuild(kind.String(), d, err == nil)

	if err != nil {
		// Stale output keeps being served.
		observability.ErrorContext(ctx, "Rebuild failed", logfields.Duration(d), logfields.Error(err))
	} else {
		observability.InfoContext(ctx, "Rebuilt", logfields.Duration(d))
		s.hub.Broadcast(MessageReload)
	}
	if s.opts.AfterRebuild != nil {
		s.opts.AfterRebuild(kind, err)
	}
}

func (s *Server) runRebuild(ctx context.Context, kind Kind) error {
	if kind&KindFull != 0 {
		_, err := s.builder.BuildSite(ctx, s.site)
		return err
	}
	var errs []error
	pages := kind&KindPages != 0
	if kind&KindStyles != 0 {
		changed, err := s.builder.RenderStyles(ctx, s.site)
		if err != nil {
			errs = append(errs, err)
		}
		pages = pages || changed
	}
	if pages {
		if err := s.builder.RenderPages(ctx, s.site); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
