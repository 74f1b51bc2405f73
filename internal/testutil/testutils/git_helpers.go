package helpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// SetupTestGitRepo initializes a git repository in dir.
// Returns the repository and its worktree.
func SetupTestGitRepo(t *testing.T, dir string) (*git.Repository, *git.Worktree) {
	t.Helper()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to initialize git repo: %v", err)
	}

	w, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	return repo, w
}

// CommitFile writes content to relPath inside the worktree and commits it with
// the given commit time.
func CommitFile(t *testing.T, w *git.Worktree, relPath, content string, when time.Time) {
	t.Helper()

	full := filepath.Join(w.Filesystem.Root(), relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", relPath, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", relPath, err)
	}
	if _, err := w.Add(filepath.ToSlash(relPath)); err != nil {
		t.Fatalf("failed to add %s: %v", relPath, err)
	}

	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: when}
	if _, err := w.Commit("update "+relPath, &git.CommitOptions{Author: sig, Committer: sig}); err != nil {
		t.Fatalf("failed to commit %s: %v", relPath, err)
	}
}
