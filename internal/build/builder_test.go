package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/site"
	helpers "git.home.luguber.info/inful/sitegen/internal/testutil/testutils"
)

type recordingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	stages   map[string]metrics.ResultLabel
	outcomes []string
	gz       int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{stages: map[string]metrics.ResultLabel{}}
}

func (r *recordingRecorder) IncStageResult(stage string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage] = result
}

func (r *recordingRecorder) IncBuildOutcome(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingRecorder) AddCompressedFiles(ok, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gz += ok
}

func newBuilder(t *testing.T, f *helpers.SiteFixture, opts ...Option) *Builder {
	t.Helper()
	b, err := NewBuilder(f.Config, opts...)
	require.NoError(t, err)
	return b
}

func TestBuildSite_WritesCompleteSite(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	s := site.New(f.Config)

	report, err := newBuilder(t, f).BuildSite(context.Background(), s)
	require.NoError(t, err)

	f.Assert().
		AssertFileExists("index.html").
		AssertFileExists("404/index.html").
		AssertFileExists("about/index.html").
		AssertFileExists("notes/index.html").
		AssertFileExists("sitemap.xml").
		AssertFileExists("style.css").
		AssertFileExists("images/logo.svg").
		AssertFileExists("js/app.js").
		AssertFileExists("assets/scss/style.css").
		AssertFileExists("robots.txt").
		AssertFileExists("favicon.ico").
		AssertNoFile("humans.txt").
		AssertFileContains("index.html", `href="/about/"`).
		AssertFileContains("style.css", "color: #222")

	assert.Equal(t, BuildStatusSuccess, report.Status)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 4, report.Pages)
	assert.Empty(t, report.FailedStages())
	assert.Empty(t, report.Error)

	var names []string
	for _, st := range report.Stages {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{
		StageClean, StageCopyAssets, StageRenderStyles, StageRootFiles,
		StageRenderPages, StageSpecialPages, StageSitemap, StageCompress,
	}, names)
}

func TestBuildSite_RemovesStaleOutput(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	require.NoError(t, os.MkdirAll(f.Config.Out, 0o755))
	require.NoError(t, os.WriteFile(f.Out("stale.html"), []byte("old"), 0o644))

	_, err := newBuilder(t, f).BuildSite(context.Background(), site.New(f.Config))
	require.NoError(t, err)

	f.Assert().AssertNoFile("stale.html").AssertFileExists("index.html")
}

func TestBuildSite_ResetsPageRegistrations(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	s := site.New(f.Config)
	s.AddPage(site.ContentData{Metadata: site.Metadata{Path: "/gone/", Layout: site.LayoutPage}, Source: "gone.md"})

	_, err := newBuilder(t, f).BuildSite(context.Background(), s)
	require.NoError(t, err)

	_, ok := s.State().Page("/gone/")
	assert.False(t, ok)
}

func TestBuildSite_Production(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	f.Config.Production = true
	rec := newRecordingRecorder()

	report, err := newBuilder(t, f, WithRecorder(rec)).BuildSite(context.Background(), site.New(f.Config))
	require.NoError(t, err)

	entries, err := os.ReadDir(f.Config.Out)
	require.NoError(t, err)
	hashed := regexp.MustCompile(`^style\.[0-9a-f]{8}\.css$`)
	var style string
	for _, e := range entries {
		if hashed.MatchString(e.Name()) {
			style = e.Name()
		}
	}
	require.NotEmpty(t, style, "hashed stylesheet not emitted")

	f.Assert().
		AssertNoFile("style.css").
		AssertFileContains("about/index.html", "/"+style).
		AssertFileExists("index.html.gz").
		AssertFileExists("index.html.br").
		AssertFileExists(style + ".br").
		AssertNoFile("robots.txt.gz")

	assert.Positive(t, report.Compressed.Compressed)
	assert.Zero(t, report.Compressed.Failed)
	assert.Equal(t, report.Compressed.Compressed, rec.gz)
	assert.True(t, report.Production)
}

func TestBuildSite_AllStagesRunAndFailuresAggregate(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	f.WriteFile("content/pages/about.adoc", "= About\n:created: someday\n\nBody.\n")
	f.WriteFile("assets/styles/style.css", "@import \"missing.css\";\n")
	rec := newRecordingRecorder()

	report, err := newBuilder(t, f, WithRecorder(rec)).BuildSite(context.Background(), site.New(f.Config))
	require.Error(t, err)

	be, ok := AsBuildError(err)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{StageRenderStyles, StageRenderPages}, be.Stages())
	assert.Contains(t, err.Error(), "render_styles: ")
	assert.Contains(t, err.Error(), "render_pages: ")
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryBuild))

	// Later and sibling stages still produced their output.
	f.Assert().
		AssertFileExists("index.html").
		AssertFileExists("404/index.html").
		AssertFileExists("sitemap.xml").
		AssertFileExists("images/logo.svg").
		AssertFileExists("robots.txt")

	assert.Equal(t, BuildStatusFailed, report.Status)
	assert.Equal(t, []string{StageRenderStyles, StageRenderPages}, report.FailedStages())
	assert.Equal(t, err.Error(), report.Error)
	assert.Equal(t, metrics.ResultFailed, rec.stages[StageRenderPages])
	assert.Equal(t, metrics.ResultSuccess, rec.stages[StageSitemap])
	assert.Equal(t, []string{string(BuildStatusFailed)}, rec.outcomes)
}

func TestBuildSite_DuplicatePageDoesNotFail(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	f.WriteFile("content/pages/about.md", "# About again\n")

	report, err := newBuilder(t, f).BuildSite(context.Background(), site.New(f.Config))
	require.NoError(t, err)
	assert.Equal(t, BuildStatusSuccess, report.Status)
	f.Assert().AssertFileExists("about/index.html")
}

func TestBuildSite_MissingOptionalSources(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	require.NoError(t, os.RemoveAll(f.Path("content/pages")))
	require.NoError(t, os.RemoveAll(f.Path("assets/images")))
	f.RemoveFile("assets/styles/style.css")

	report, err := newBuilder(t, f).BuildSite(context.Background(), site.New(f.Config))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Pages)
	f.Assert().AssertFileExists("index.html").AssertNoFile("images")
}

func TestBuildSite_NotifiesObservers(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	var got []*Report
	obs := ObserverFunc(func(_ context.Context, r *Report) { got = append(got, r) })
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ticks := 0
	clock := func() time.Time {
		ticks++
		return start.Add(time.Duration(ticks-1) * time.Second)
	}

	report, err := newBuilder(t, f, WithObserver(obs), WithClock(clock)).BuildSite(context.Background(), site.New(f.Config))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Same(t, report, got[0])
	assert.Equal(t, start, report.Start)
	assert.Equal(t, time.Second, report.Duration)
}

func TestBuildSite_Cancelled(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var seen *Report

	report, err := newBuilder(t, f, WithObserver(ObserverFunc(func(_ context.Context, r *Report) { seen = r }))).
		BuildSite(ctx, site.New(f.Config))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, BuildStatusCancelled, report.Status)
	assert.Same(t, report, seen)
}

func TestBuildSite_CleanFailureStopsBuild(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	f.Config.Out = ""

	report, err := newBuilder(t, f).BuildSite(context.Background(), site.New(f.Config))
	require.Error(t, err)
	be, ok := AsBuildError(err)
	require.True(t, ok)
	assert.Equal(t, []string{StageClean}, be.Stages())
	assert.Len(t, report.Stages, 1)
}

func TestRenderStyles_ReportsNameChange(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	f.Config.Production = true
	s := site.New(f.Config)
	b := newBuilder(t, f)
	ctx := context.Background()

	changed, err := b.RenderStyles(ctx, s)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = b.RenderStyles(ctx, s)
	require.NoError(t, err)
	assert.False(t, changed)

	f.WriteFile("assets/styles/base.css", "body {\n  color: #000;\n}\n")
	changed, err = b.RenderStyles(ctx, s)
	require.NoError(t, err)
	assert.True(t, changed)

	matches, err := filepath.Glob(f.Out("style.*.css"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRenderStyles_DevelopmentNameIsStable(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	s := site.New(f.Config)

	changed, err := newBuilder(t, f).RenderStyles(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "/style.css", s.Style("style.css"))
}

func TestRenderStyles_Failure(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	f.WriteFile("assets/styles/style.css", "@import \"nope.css\";\n")

	_, err := newBuilder(t, f).RenderStyles(context.Background(), site.New(f.Config))
	require.Error(t, err)
	be, ok := AsBuildError(err)
	require.True(t, ok)
	assert.Equal(t, []string{StageRenderStyles}, be.Stages())
}

func TestRenderPages_Incremental(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	s := site.New(f.Config)
	b := newBuilder(t, f)
	ctx := context.Background()

	require.NoError(t, b.RenderPages(ctx, s))
	f.Assert().
		AssertFileExists("about/index.html").
		AssertFileExists("index.html").
		AssertFileExists("sitemap.xml")

	f.WriteFile("content/pages/new.md", "# Fresh\n")
	require.NoError(t, b.RenderPages(ctx, s))
	f.Assert().
		AssertFileContains("new/index.html", "Fresh").
		AssertFileContains("index.html", `href="/new/"`).
		AssertFileContains("sitemap.xml", "https://example.com/new/")
}

func TestCreateRootFiles_SkipsAbsent(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	f.Config.RootFiles = []string{"robots.txt", "humans.txt"}
	require.NoError(t, os.MkdirAll(f.Config.Out, 0o755))

	require.NoError(t, CreateRootFiles(context.Background(), f.Config))
	f.Assert().
		AssertFileContains("robots.txt", "User-agent").
		AssertNoFile("humans.txt").
		AssertNoFile("favicon.ico")
}

func TestClean(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	require.NoError(t, Clean(f.Config), "missing output directory")

	require.NoError(t, os.MkdirAll(f.Out("a/b"), 0o755))
	require.NoError(t, os.WriteFile(f.Out("a/b/c.html"), []byte("x"), 0o644))
	require.NoError(t, Clean(f.Config))
	_, err := os.Stat(f.Config.Out)
	assert.True(t, os.IsNotExist(err))

	for _, out := range []string{"", ".", "/"} {
		cfg := f.Config
		cfg.Out = out
		assert.True(t, ferrors.HasCategory(Clean(cfg), ferrors.CategoryValidation), out)
	}
}

func TestClean_RefusesDirectoriesHoldingSources(t *testing.T) {
	f := helpers.NewSiteFixture(t)

	for _, out := range []string{f.Root, f.Path("content"), f.Path("assets"), ".."} {
		cfg := f.Config
		cfg.Out = out
		assert.True(t, ferrors.HasCategory(Clean(cfg), ferrors.CategoryValidation), out)
	}

	cfg := f.Config
	cfg.Out = f.Path("content")
	cfg.Content.Pages = f.Path("content/pages")
	require.Error(t, Clean(cfg))
	assert.FileExists(t, f.Path("content/pages/about.adoc"))
	assert.FileExists(t, f.Path("assets/styles/style.css"))
}

func TestBuildStatus_IsSuccess(t *testing.T) {
	tests := []struct {
		status   BuildStatus
		expected bool
	}{
		{BuildStatusSuccess, true},
		{BuildStatusFailed, false},
		{BuildStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.IsSuccess())
			assert.True(t, tt.status.IsTerminal())
		})
	}
	assert.False(t, BuildStatus("skipped").IsTerminal())
	assert.False(t, BuildStatus("").IsSuccess())
}
