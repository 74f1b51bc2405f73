package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"git.home.luguber.info/inful/sitegen/internal/config"
)

// Default fixture sources, relative to the fixture root.
var defaultFixtureFiles = map[string]string{
	"content/pages/about.adoc": "= About\n:description: About this site\n:created: 2020-01-01\n\nHello from *about*.\n",
	"content/pages/notes.md":   "---\ntitle: Notes\ndescription: Loose notes\n---\n\nSome **notes**.\n",
	"assets/styles/style.css":  "@import \"base.css\";\n\nmain {\n  margin: 0 auto;\n}\n",
	"assets/styles/base.css":   "body {\n  color: #222;\n}\n",
	"assets/images/logo.svg":   "<svg xmlns=\"http://www.w3.org/2000/svg\"></svg>\n",
	"assets/js/app.js":         "console.log('app');\n",
	"assets/robots.txt":        "User-agent: *\n",
	"assets/favicon.ico":       "ico",
}

// SiteFixture is a throwaway site source tree with a matching configuration.
// Paths in Config are absolute, the output directory is Root/public, git
// lookups are disabled and server ports are ephemeral.
type SiteFixture struct {
	t      *testing.T
	Root   string
	Config config.Config
}

// NewSiteFixture creates the default fixture tree in a temp directory.
func NewSiteFixture(t *testing.T) *SiteFixture {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.Out = filepath.Join(root, "public")
	cfg.Site.URL = "https://example.com"
	cfg.Content.Pages = filepath.Join(root, "content", "pages")
	cfg.Assets.Root = filepath.Join(root, "assets")
	cfg.Assets.Images = filepath.Join(root, "assets", "images")
	cfg.Assets.Scripts = filepath.Join(root, "assets", "js")
	cfg.Assets.Styles = filepath.Join(root, "assets", "styles")
	cfg.Assets.StyleEntry = "style.css"
	cfg.Build.GitInfo = false
	cfg.Server.Port = 0
	cfg.Server.LiveReloadPort = 0

	f := &SiteFixture{t: t, Root: root, Config: cfg}
	for rel, content := range defaultFixtureFiles {
		f.WriteFile(rel, content)
	}
	return f
}

// Path joins rel onto the fixture root.
func (f *SiteFixture) Path(rel string) string {
	return filepath.Join(f.Root, filepath.FromSlash(rel))
}

// Out joins rel onto the configured output directory.
func (f *SiteFixture) Out(rel string) string {
	return filepath.Join(f.Config.Out, filepath.FromSlash(rel))
}

// WriteFile writes a source file, creating parent directories.
func (f *SiteFixture) WriteFile(rel, content string) string {
	f.t.Helper()
	path := f.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		f.t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		f.t.Fatalf("failed to write %s: %v", rel, err)
	}
	return path
}

// RemoveFile deletes a source file.
func (f *SiteFixture) RemoveFile(rel string) {
	f.t.Helper()
	if err := os.Remove(f.Path(rel)); err != nil {
		f.t.Fatalf("failed to remove %s: %v", rel, err)
	}
}

// ReadOut returns the content of an output file, failing the test if absent.
func (f *SiteFixture) ReadOut(rel string) string {
	f.t.Helper()
	data, err := os.ReadFile(f.Out(rel)) // #nosec G304 -- test fixture path
	if err != nil {
		f.t.Fatalf("failed to read output %s: %v", rel, err)
	}
	return string(data)
}

// Assert returns file assertions rooted at the output directory.
func (f *SiteFixture) Assert() *FileAssertions {
	return NewFileAssertions(f.t, f.Config.Out)
}
