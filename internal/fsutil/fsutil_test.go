package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tree creates files (relative path -> content) under a fresh temp dir.
func tree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func relSorted(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

var sample = map[string]string{
	"index.html":            "<html></html>",
	"about/index.html":      "<p>about</p>",
	"style.css":             "body{}",
	"style.css.map":         "{}",
	"robots.txt":            "User-agent: *",
	"CNAME":                 "example.com",
	"js/app.js":             "console.log(1)",
	"js/vendor/lib.js":      "var x",
	"images/logo.svg":       "<svg/>",
	"images/logo.svg.gz":    "gz",
	"assets/scss/main.scss": "$a: 1;",
}

func TestWalk(t *testing.T) {
	root := tree(t, sample)

	flat, err := Walk(root, "html", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"index.html"}, relSorted(t, root, flat))

	deep, err := Walk(root, "html", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"about/index.html", "index.html"}, relSorted(t, root, deep))

	js, err := Walk(root, "js", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"js/app.js", "js/vendor/lib.js"}, relSorted(t, root, js))

	// "map" must not match "style.css.map" as "css".
	css, err := Walk(root, "css", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"style.css"}, relSorted(t, root, css))
}

func TestWalk_MissingDirIsFSError(t *testing.T) {
	_, err := Walk(filepath.Join(t.TempDir(), "missing"), "md", false)
	require.Error(t, err)
	assert.True(t, IsFSError(err))
}

func TestListAllExcept_ExcludesExtensions(t *testing.T) {
	root := tree(t, sample)
	excluded := []string{".map", ".txt", ".scss", ".gz", ".br", ""}

	got, err := ListAllExcept(root, excluded)
	require.NoError(t, err)
	for _, p := range got {
		assert.NotContains(t, excluded, filepath.Ext(p), p)
	}
	assert.Equal(t, []string{
		"about/index.html",
		"images/logo.svg",
		"index.html",
		"js/app.js",
		"js/vendor/lib.js",
		"style.css",
	}, relSorted(t, root, got))
}

func TestListAllExcept_PartitionMatchesWalk(t *testing.T) {
	root := tree(t, sample)

	all, err := Walk(root, MatchAll, true)
	require.NoError(t, err)
	none, err := ListAllExcept(root, nil)
	require.NoError(t, err)
	assert.Equal(t, relSorted(t, root, all), relSorted(t, root, none))

	// Every file lands in exactly one side of an exclusion split.
	excluded := []string{".html", ""}
	kept, err := ListAllExcept(root, excluded)
	require.NoError(t, err)
	var dropped []string
	for _, p := range all {
		ext := filepath.Ext(p)
		if ext == ".html" || ext == "" {
			dropped = append(dropped, p)
		}
	}
	union := append(relSorted(t, root, kept), relSorted(t, root, dropped)...)
	sort.Strings(union)
	assert.Equal(t, relSorted(t, root, all), union)
}

func TestCopyTree_PreservesFilesAndDigests(t *testing.T) {
	src := tree(t, sample)
	dst := filepath.Join(t.TempDir(), "nested", "out")

	require.NoError(t, CopyTree(src, dst, true))

	srcFiles, err := Walk(src, MatchAll, true)
	require.NoError(t, err)
	dstFiles, err := Walk(dst, MatchAll, true)
	require.NoError(t, err)
	assert.Equal(t, relSorted(t, src, srcFiles), relSorted(t, dst, dstFiles))

	for _, p := range srcFiles {
		rel, err := filepath.Rel(src, p)
		require.NoError(t, err)
		want, err := HashFile(p)
		require.NoError(t, err)
		got, err := HashFile(filepath.Join(dst, rel))
		require.NoError(t, err)
		assert.Equal(t, want, got, rel)
	}
}

func TestCopyTree_NonRecursiveSkipsDirectories(t *testing.T) {
	src := tree(t, sample)
	dst := t.TempDir()

	require.NoError(t, CopyTree(src, dst, false))
	got, err := Walk(dst, MatchAll, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"CNAME", "index.html", "robots.txt", "style.css", "style.css.map"}, relSorted(t, dst, got))
}

func TestCopyTree_OverwritesExistingFiles(t *testing.T) {
	src := tree(t, map[string]string{"a.txt": "new"})
	dst := tree(t, map[string]string{"a.txt": "old", "keep.txt": "kept"})

	require.NoError(t, CopyTree(src, dst, true))
	data, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	assert.FileExists(t, filepath.Join(dst, "keep.txt"))
}

func TestCopyFile_NoOverwrite(t *testing.T) {
	root := tree(t, map[string]string{"a": "1", "b": "2"})
	err := CopyFile(filepath.Join(root, "a"), filepath.Join(root, "b"), false)
	require.Error(t, err)
	assert.True(t, IsFSError(err))

	data, err := os.ReadFile(filepath.Join(root, "b"))
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))
}

func TestHashFile(t *testing.T) {
	root := tree(t, map[string]string{"a": "hello", "b": "hello", "c": "hellp"})

	a, err := HashFile(filepath.Join(root, "a"))
	require.NoError(t, err)
	assert.Len(t, a, HashLength)
	// md5("hello") = 5d41402abc4b2a76b9719d911017c592
	assert.Equal(t, "5d41402a", a)

	again, err := HashFile(filepath.Join(root, "a"))
	require.NoError(t, err)
	assert.Equal(t, a, again)

	b, err := HashFile(filepath.Join(root, "b"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := HashFile(filepath.Join(root, "c"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = HashFile(filepath.Join(root, "missing"))
	assert.True(t, IsFSError(err))
}

func TestRemoveTree(t *testing.T) {
	root := tree(t, sample)

	err := RemoveTree(filepath.Join(root, "js"), false, false)
	require.Error(t, err, "non-recursive removal of a non-empty dir fails")
	assert.True(t, IsFSError(err))

	require.NoError(t, RemoveTree(filepath.Join(root, "js"), true, false))
	assert.NoDirExists(t, filepath.Join(root, "js"))

	err = RemoveTree(filepath.Join(root, "js"), true, false)
	require.Error(t, err)
	assert.True(t, IsFSError(err))

	assert.NoError(t, RemoveTree(filepath.Join(root, "js"), true, true))
}

func TestRemoveTrees_AttemptsAll(t *testing.T) {
	root := tree(t, sample)
	err := RemoveTrees([]string{
		filepath.Join(root, "missing"),
		filepath.Join(root, "images"),
	}, true, false)
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Join(root, "images"))
}

func TestWriteFile_CreatesParents(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a", "b", "index.html")
	require.NoError(t, WriteFile(path, []byte("x")))

	data, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	assert.True(t, Exists(path))
	assert.False(t, Exists(filepath.Join(root, "nope")))
}
