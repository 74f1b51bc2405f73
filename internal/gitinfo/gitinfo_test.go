package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	helpers "git.home.luguber.info/inful/sitegen/internal/testutil/testutils"
)

func TestRepo_LastModified(t *testing.T) {
	dir := t.TempDir()
	_, w := helpers.SetupTestGitRepo(t, dir)

	first := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	second := time.Date(2022, 6, 7, 8, 9, 10, 0, time.UTC)
	helpers.CommitFile(t, w, "content/pages/about.adoc", "= About\n", first)
	helpers.CommitFile(t, w, "content/pages/notes.md", "# Notes\n", first)
	helpers.CommitFile(t, w, "content/pages/about.adoc", "= About\n\nMore.\n", second)

	repo, err := Open(filepath.Join(dir, "content"))
	require.NoError(t, err)

	got, err := repo.LastModified(filepath.Join(dir, "content", "pages", "about.adoc"))
	require.NoError(t, err)
	assert.True(t, got.Equal(second), "got %s", got)

	got, err = repo.LastModified(filepath.Join(dir, "content", "pages", "notes.md"))
	require.NoError(t, err)
	assert.True(t, got.Equal(first), "got %s", got)

	// cached lookups answer the same
	got, err = repo.LastModified(filepath.Join(dir, "content", "pages", "about.adoc"))
	require.NoError(t, err)
	assert.True(t, got.Equal(second))
}

func TestRepo_UntrackedAndOutside(t *testing.T) {
	dir := t.TempDir()
	_, w := helpers.SetupTestGitRepo(t, dir)
	helpers.CommitFile(t, w, "README.md", "hi\n", time.Now())

	repo, err := Open(dir)
	require.NoError(t, err)

	got, err := repo.LastModified(filepath.Join(dir, "draft.md"))
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = repo.LastModified(filepath.Join(t.TempDir(), "other.md"))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestRepo_UnreadableHistory(t *testing.T) {
	dir := t.TempDir()
	_, w := helpers.SetupTestGitRepo(t, dir)
	helpers.CommitFile(t, w, "content/pages/about.adoc", "= About\n", time.Now())

	repo, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, ".git", "objects")))

	got, err := repo.LastModified(filepath.Join(dir, "content", "pages", "about.adoc"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
	assert.True(t, got.IsZero())
}

func TestOpen_NotARepository(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
}

func TestNone(t *testing.T) {
	got, err := None{}.LastModified("anything")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
