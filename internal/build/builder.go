package build

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitegen/internal/assets"
	"git.home.luguber.info/inful/sitegen/internal/compress"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/fsutil"
	"git.home.luguber.info/inful/sitegen/internal/gitinfo"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/observability"
	"git.home.luguber.info/inful/sitegen/internal/site"
	"git.home.luguber.info/inful/sitegen/internal/templates"
)

// Stage names, as they appear in logs, metrics and reports.
const (
	StageClean        = "clean"
	StageCopyAssets   = "copy_assets"
	StageRenderStyles = "render_styles"
	StageRootFiles    = "root_files"
	StageRenderPages  = "render_pages"
	StageSpecialPages = "special_pages"
	StageSitemap      = "sitemap"
	StageCompress     = "compress"
)

type stage struct {
	name string
	run  func(ctx context.Context) error
}

// Builder runs full and incremental builds of a site.
type Builder struct {
	styles    assets.StyleRenderer
	pipeline  *content.Pipeline
	recorder  metrics.Recorder
	observers []Observer
	now       func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder sets the metrics recorder. The default discards everything.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithObserver registers an observer for completed full builds.
func WithObserver(o Observer) Option {
	return func(b *Builder) {
		if o != nil {
			b.observers = append(b.observers, o)
		}
	}
}

// WithStyleRenderer replaces the stylesheet renderer picked from the config.
func WithStyleRenderer(r assets.StyleRenderer) Option {
	return func(b *Builder) { b.styles = r }
}

// WithPipeline replaces the content pipeline.
func WithPipeline(p *content.Pipeline) Option {
	return func(b *Builder) { b.pipeline = p }
}

// WithClock overrides the time source used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder wires the default collaborators for cfg. Layouts are loaded from
// the templates override directory when one is configured. Git lookups are
// enabled by build.git_info; a pages directory outside any repository simply
// disables them.
func NewBuilder(cfg config.Config, opts ...Option) (*Builder, error) {
	b := &Builder{
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.styles == nil {
		b.styles = assets.NewStyleRenderer(cfg)
	}
	if b.pipeline == nil {
		tpl, err := templates.NewHTMLRenderer(cfg.Templates.Dir)
		if err != nil {
			return nil, err
		}
		b.pipeline = content.NewPipeline(content.NewRegistry(), tpl, openGit(cfg))
	}
	return b, nil
}

func openGit(cfg config.Config) gitinfo.Source {
	if !cfg.Build.GitInfo {
		return gitinfo.None{}
	}
	repo, err := gitinfo.Open(cfg.Content.Pages)
	if err != nil {
		observability.DebugContext(context.Background(), "Git info unavailable, sitemap dates fall back to frontmatter",
			logfields.Path(cfg.Content.Pages), logfields.Error(err))
		return gitinfo.None{}
	}
	return repo
}

// BuildSite performs a full build: it forgets previous page registrations,
// removes and recreates the output directory, then runs the stages phase by
// phase. The returned report is always non-nil. The error is a *BuildError
// when one or more stages failed.
func (b *Builder) BuildSite(ctx context.Context, s *site.Site) (*Report, error) {
	cfg := s.Config()
	report := &Report{
		ID:         uuid.NewString(),
		Production: cfg.Production,
		Start:      b.now(),
	}
	ctx = observability.WithBuildID(ctx, report.ID)
	observability.InfoContext(ctx, "Build started", logfields.Path(cfg.Out), logfields.Op(mode(cfg)))

	s.State().ResetPages()

	var failures []StageError
	prepare := b.runStage(ctx, stage{name: StageClean, run: func(context.Context) error {
		if err := Clean(cfg); err != nil {
			return err
		}
		return fsutil.CreateDirectory(cfg.Out)
	}})
	report.Stages = append(report.Stages, prepare.result)
	if prepare.err != nil {
		// Nothing sensible can be written into an output directory that could
		// not be reset.
		failures = append(failures, StageError{Stage: StageClean, Err: prepare.err})
		return b.finish(ctx, s, report, failures)
	}

	for _, phase := range b.phases(s, report) {
		for _, out := range b.runPhase(ctx, cfg.Build.Concurrency, phase) {
			report.Stages = append(report.Stages, out.result)
			if out.err != nil {
				failures = append(failures, StageError{Stage: out.result.Name, Err: out.err})
			}
		}
	}
	return b.finish(ctx, s, report, failures)
}

func (b *Builder) phases(s *site.Site, report *Report) [][]stage {
	cfg := s.Config()
	return [][]stage{
		{
			{name: StageCopyAssets, run: func(ctx context.Context) error { return assets.CopyAssets(ctx, cfg) }},
			{name: StageRenderStyles, run: func(ctx context.Context) error { return b.renderStyles(ctx, s) }},
			{name: StageRootFiles, run: func(ctx context.Context) error { return CreateRootFiles(ctx, cfg) }},
		},
		{{name: StageRenderPages, run: func(ctx context.Context) error { return b.pipeline.RenderPages(ctx, s) }}},
		{{name: StageSpecialPages, run: func(ctx context.Context) error { return b.pipeline.RenderSpecialPages(ctx, s) }}},
		{{name: StageSitemap, run: func(ctx context.Context) error { return b.pipeline.Sitemap(ctx, s) }}},
		{{name: StageCompress, run: func(ctx context.Context) error {
			sum, err := compress.Compress(ctx, cfg)
			report.Compressed = sum
			b.recorder.AddCompressedFiles(sum.Compressed, sum.Failed)
			return err
		}}},
	}
}

func (b *Builder) finish(ctx context.Context, s *site.Site, report *Report, failures []StageError) (*Report, error) {
	report.End = b.now()
	report.Duration = report.End.Sub(report.Start)
	report.Pages = len(s.Pages())

	var err error
	switch {
	case ctx.Err() != nil:
		report.Status = BuildStatusCancelled
	case len(failures) > 0:
		report.Status = BuildStatusFailed
	default:
		report.Status = BuildStatusSuccess
	}
	if len(failures) > 0 {
		err = &BuildError{Failures: failures}
		report.Error = err.Error()
	} else if ctx.Err() != nil {
		err = ctx.Err()
		report.Error = err.Error()
	}

	b.recorder.ObserveBuildDuration(report.Duration)
	b.recorder.IncBuildOutcome(string(report.Status))

	if err != nil {
		observability.ErrorContext(ctx, "Build failed",
			logfields.Duration(report.Duration), logfields.Count(report.Pages), logfields.Error(err))
	} else {
		observability.InfoContext(ctx, "Build finished",
			logfields.Duration(report.Duration), logfields.Count(report.Pages))
	}

	for _, o := range b.observers {
		o.BuildCompleted(ctx, report)
	}
	return report, err
}

// RenderStyles re-renders the stylesheet only. changed reports whether the
// emitted stylesheet name differs from the one pages currently link to, in
// which case pages need re-rendering too.
func (b *Builder) RenderStyles(ctx context.Context, s *site.Site) (changed bool, err error) {
	name := s.Config().Assets.StyleName()
	before := s.Style(name)
	out := b.runStage(ctx, stage{name: StageRenderStyles, run: func(ctx context.Context) error {
		return b.renderStyles(ctx, s)
	}})
	if out.err != nil {
		return false, &BuildError{Failures: []StageError{{Stage: StageRenderStyles, Err: out.err}}}
	}
	return s.Style(name) != before, nil
}

// RenderPages re-renders the document pages, the special pages and the
// sitemap, in that order. Unchanged documents are skipped.
func (b *Builder) RenderPages(ctx context.Context, s *site.Site) error {
	var failures []StageError
	for _, st := range []stage{
		{name: StageRenderPages, run: func(ctx context.Context) error { return b.pipeline.RenderPages(ctx, s) }},
		{name: StageSpecialPages, run: func(ctx context.Context) error { return b.pipeline.RenderSpecialPages(ctx, s) }},
		{name: StageSitemap, run: func(ctx context.Context) error { return b.pipeline.Sitemap(ctx, s) }},
	} {
		if out := b.runStage(ctx, st); out.err != nil {
			failures = append(failures, StageError{Stage: st.name, Err: out.err})
		}
	}
	if len(failures) > 0 {
		return &BuildError{Failures: failures}
	}
	return nil
}

func (b *Builder) renderStyles(ctx context.Context, s *site.Site) error {
	entry := s.Config().Assets.StyleEntryPath()
	if !fsutil.Exists(entry) {
		observability.DebugContext(ctx, "Style entry missing, skipping", logfields.Path(entry))
		return nil
	}
	return b.styles.Render(ctx, s, entry)
}

type stageOutcome struct {
	result StageResult
	err    error
}

// runPhase runs stages concurrently, at most limit at a time, and returns
// their outcomes in declaration order.
func (b *Builder) runPhase(ctx context.Context, limit int, stages []stage) []stageOutcome {
	outcomes := make([]stageOutcome, len(stages))
	sem := make(chan struct{}, max(limit, 1))
	var wg sync.WaitGroup
	for i, st := range stages {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = b.runStage(ctx, st)
		}()
	}
	wg.Wait()
	return outcomes
}

func (b *Builder) runStage(ctx context.Context, st stage) stageOutcome {
	ctx = observability.WithStage(ctx, st.name)
	start := time.Now()
	err := st.run(ctx)
	d := time.Since(start)

	b.recorder.ObserveStageDuration(st.name, d)
	result := StageResult{Name: st.name, Duration: d}
	switch {
	case err == nil:
		b.recorder.IncStageResult(st.name, metrics.ResultSuccess)
		observability.DebugContext(ctx, "Stage completed", logfields.Duration(d))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		b.recorder.IncStageResult(st.name, metrics.ResultCanceled)
		result.Error = err.Error()
		observability.WarnContext(ctx, "Stage cancelled", logfields.Duration(d))
	default:
		b.recorder.IncStageResult(st.name, metrics.ResultFailed)
		result.Error = err.Error()
		observability.ErrorContext(ctx, "Stage failed", logfields.Duration(d), logfields.Error(err))
	}
	return stageOutcome{result: result, err: err}
}

func mode(cfg config.Config) string {
	if cfg.Production {
		return "production"
	}
	return "development"
}
