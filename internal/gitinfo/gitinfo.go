// Package gitinfo answers "when was this source file last committed" for the
// sitemap's lastmod field.
package gitinfo

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// Source reports the last modification time of a source file. A zero time
// with a nil error means the source has no known history.
type Source interface {
	LastModified(path string) (time.Time, error)
}

// Repo resolves commit times from the repository containing the site sources.
// Lookups are cached for the lifetime of the Repo.
type Repo struct {
	repo *git.Repository
	root string

	mu    sync.Mutex
	cache map[string]time.Time
}

// Open finds the repository containing path, searching parent directories.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve repository path").
			WithContext("path", path).Build()
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNotFound, "open git repository").
			WithContext("path", abs).Build()
	}
	w, err := repo.Worktree()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNotFound, "repository has no worktree").
			WithContext("path", abs).Build()
	}
	root := w.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	return &Repo{repo: repo, root: root, cache: make(map[string]time.Time)}, nil
}

// LastModified returns the committer time of the newest commit touching path.
// The time is zero when the file is outside the repository or not yet
// committed. Failed history reads are returned and not cached.
func (r *Repo) LastModified(path string) (time.Time, error) {
	rel, ok := r.relative(path)
	if !ok {
		return time.Time{}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, hit := r.cache[rel]; hit {
		return t, nil
	}

	t, err := r.lookup(rel)
	if err != nil {
		return time.Time{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read git history").
			WithContext("path", rel).Build()
	}
	r.cache[rel] = t
	return t, nil
}

var errFound = errors.New("found")

func (r *Repo) lookup(rel string) (time.Time, error) {
	iter, err := r.repo.Log(&git.LogOptions{FileName: &rel})
	if err != nil {
		return time.Time{}, err
	}
	defer iter.Close()

	var when time.Time
	err = iter.ForEach(func(c *object.Commit) error {
		when = c.Committer.When
		return errFound
	})
	if err != nil && !errors.Is(err, errFound) {
		return time.Time{}, err
	}
	return when, nil
}

func (r *Repo) relative(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// None is a Source that never knows anything.
type None struct{}

func (None) LastModified(string) (time.Time, error) { return time.Time{}, nil }
