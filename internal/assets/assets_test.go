package assets

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/fsutil"
	"git.home.luguber.info/inful/sitegen/internal/site"
	helpers "git.home.luguber.info/inful/sitegen/internal/testutil/testutils"
)

func TestCopyAssets(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	f.WriteFile("assets/images/icons/star.svg", "<svg/>")
	// stale output from an earlier build
	require.NoError(t, fsutil.WriteFile(f.Out("images/old.png"), []byte("old")))
	require.NoError(t, fsutil.WriteFile(f.Out("keep.txt"), []byte("keep")))

	require.NoError(t, CopyAssets(context.Background(), f.Config))

	a := f.Assert()
	a.AssertFileExists("images/logo.svg")
	a.AssertFileExists("images/icons/star.svg")
	a.AssertNoFile("images/old.png")
	a.AssertFileExists("assets/scss/style.css")
	a.AssertFileExists("assets/scss/base.css")
	a.AssertFileExists("js/app.js")
	a.AssertFileExists("keep.txt")
}

func TestCopyAssets_MissingSourceSkipped(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	f.Config.Assets.Scripts = filepath.Join(f.Root, "nope")

	require.NoError(t, CopyAssets(context.Background(), f.Config))
	f.Assert().AssertFileExists("images/logo.svg")
	f.Assert().AssertNoFile("js/app.js")
}

func TestCopyAssets_FailureStillCompletesOthers(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	// a dangling symlink makes the style-source copy fail
	require.NoError(t, os.Symlink(filepath.Join(f.Root, "nowhere.css"), f.Path("assets/styles/broken.css")))

	err := CopyAssets(context.Background(), f.Config)
	require.Error(t, err)
	assert.True(t, fsutil.IsFSError(err))
	f.Assert().AssertFileExists("images/logo.svg")
	f.Assert().AssertFileExists("js/app.js")
}

func TestCSSRenderer_Development(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	s := site.New(f.Config)

	require.NoError(t, (&CSSRenderer{}).Render(context.Background(), s, f.Config.Assets.StyleEntryPath()))

	css := f.ReadOut("style.css")
	assert.Contains(t, css, "body {\n  color: #222;\n}")
	assert.Contains(t, css, "margin: 0 auto;")
	assert.NotContains(t, css, "@import")
	assert.Equal(t, "/style.css", s.Style("style.css"))
}

func TestCSSRenderer_ProductionHashesAndMinifies(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	f.Config.Production = true
	s := site.New(f.Config)
	ctx := context.Background()
	r := &CSSRenderer{}

	require.NoError(t, r.Render(ctx, s, f.Config.Assets.StyleEntryPath()))
	first := s.Style("style.css")
	assert.Regexp(t, regexp.MustCompile(`^/style\.[0-9a-f]{8}\.css$`), first)
	assert.Equal(t, "body{color:#222}main{margin:0 auto}", f.ReadOut(first[1:]))
	f.Assert().AssertNoFile("style.css")

	f.WriteFile("assets/styles/base.css", "body { color: red; }\n")
	require.NoError(t, r.Render(ctx, s, f.Config.Assets.StyleEntryPath()))
	second := s.Style("style.css")
	assert.NotEqual(t, first, second)
	f.Assert().AssertNoFile(first[1:])
	f.Assert().AssertFileExists(second[1:])
}

func TestCSSRenderer_ImportErrors(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	s := site.New(f.Config)

	f.WriteFile("assets/styles/base.css", "@import 'style.css';\n")
	err := (&CSSRenderer{}).Render(context.Background(), s, f.Config.Assets.StyleEntryPath())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular @import")

	f.WriteFile("assets/styles/base.css", "@import 'missing.css';\n")
	err = (&CSSRenderer{}).Render(context.Background(), s, f.Config.Assets.StyleEntryPath())
	require.Error(t, err)
	assert.True(t, fsutil.IsFSError(err))
}

func TestBundle_KeepsRemoteAndMediaImports(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.css")
	require.NoError(t, os.WriteFile(entry, []byte(
		"@import url(\"https://fonts.example/x.css\");\n@import \"print.css\" print;\na{b:c}\n"), 0o644))

	out, err := bundle(entry, map[string]bool{})
	require.NoError(t, err)
	assert.Contains(t, out, `@import url("https://fonts.example/x.css");`)
	assert.Contains(t, out, `@import "print.css" print;`)
}

func TestMinifyCSS(t *testing.T) {
	cases := map[string]string{
		"a {\n  color: red;\n}\n":                "a{color:red}",
		"/* c */ a > b , c { margin: 0 auto ; }": "a>b,c{margin:0 auto}",
		"a::after { content: \"  x ; }  \"; }":   `a::after{content:"  x ; }  "}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, MinifyCSS(in), in)
		assert.Equal(t, want, MinifyCSS(want), "idempotent: "+in)
	}
}

func TestMinifyCSS_MediaQuery(t *testing.T) {
	got := MinifyCSS("@media (max-width: 600px) {\n  a { b: c; }\n}\n")
	assert.NotContains(t, got, "\n")
	assert.Contains(t, got, "a{b:c}")
	assert.Equal(t, got, MinifyCSS(got))
}

func TestNewStyleRenderer(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	assert.IsType(t, &CSSRenderer{}, NewStyleRenderer(f.Config))

	f.Config.Assets.StyleEntry = "style.scss"
	f.Config.Assets.SassBinary = "/opt/sass"
	r := NewStyleRenderer(f.Config)
	require.IsType(t, &SassRenderer{}, r)
	assert.Equal(t, "/opt/sass", r.(*SassRenderer).Binary)
}

func TestSassRenderer_MissingBinary(t *testing.T) {
	f := helpers.NewSiteFixture(t)
	f.Config.Assets.StyleEntry = "style.scss"
	s := site.New(f.Config)

	err := (&SassRenderer{Binary: filepath.Join(f.Root, "no-such-sass")}).Render(context.Background(), s, f.Config.Assets.StyleEntryPath())
	require.Error(t, err)
	assert.Equal(t, "/style.css", s.Style("style.css"))
}
