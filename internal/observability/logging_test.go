package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestContextFields(t *testing.T) {
	ctx := WithBuildID(context.Background(), "build-123")
	ctx = WithStage(ctx, "render_pages")
	ctx = WithRebuild(ctx, "pages")

	lc := GetContext(ctx)
	assert.Equal(t, "build-123", lc.BuildID)
	assert.Equal(t, "render_pages", lc.Stage)
	assert.Equal(t, "pages", lc.Rebuild)

	// deriving does not mutate the parent
	parent := WithStage(context.Background(), "sitemap")
	_ = WithStage(parent, "compress")
	assert.Equal(t, "sitemap", GetContext(parent).Stage)
}

func TestLogHelpersIncludeContext(t *testing.T) {
	buf := captureLogs(t)
	ctx := WithStage(WithBuildID(context.Background(), "b-1"), "copy_assets")

	InfoContext(ctx, "stage done", slog.Int("count", 3))
	DebugContext(ctx, "detail")
	WarnContext(ctx, "careful")
	ErrorContext(ctx, "broken")

	out := buf.String()
	assert.Contains(t, out, `msg="stage done" build_id=b-1 stage=copy_assets count=3`)
	assert.Contains(t, out, "level=DEBUG msg=detail")
	assert.Contains(t, out, "level=WARN msg=careful")
	assert.Contains(t, out, "level=ERROR msg=broken")
}

func TestAttrs_Empty(t *testing.T) {
	assert.Empty(t, Attrs(context.Background()))
}
