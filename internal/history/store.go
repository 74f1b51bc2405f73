// Package history keeps a log of finished builds in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/sitegen/internal/build"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/observability"
)

// ErrNotFound is returned by Get for an unknown build ID.
var ErrNotFound = ferrors.NotFoundError("build not found in history").Build()

// Entry is the summary row of a recorded build.
type Entry struct {
	ID         string
	Status     build.BuildStatus
	Production bool
	Start      time.Time
	Duration   time.Duration
	Pages      int
	Error      string
}

// Store persists build reports. It is safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ build.Observer = (*Store)(nil)

// Open opens (creating if needed) the history database at path. Use
// ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "open history database").
			WithContext("path", path).
			Build()
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "initialize history schema").
			WithContext("path", path).
			Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		production INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		pages INTEGER NOT NULL,
		error TEXT,
		report BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a finished build. Recording the same ID twice replaces the
// earlier row.
func (s *Store) Record(ctx context.Context, r *build.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "marshal build report").Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO builds (id, status, production, started_at, duration_ms, pages, error, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Status), r.Production, r.Start.UnixMilli(), r.Duration.Milliseconds(), r.Pages, r.Error, payload,
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "insert build").
			WithContext("build_id", r.ID).
			Build()
	}
	return nil
}

// Recent returns up to limit builds, newest first. A limit below one returns
// every build.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = -1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, production, started_at, duration_ms, pages, error
		 FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "query builds").Build()
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			status     string
			startedAt  int64
			durationMS int64
			errText    sql.NullString
		)
		if err := rows.Scan(&e.ID, &status, &e.Production, &startedAt, &durationMS, &e.Pages, &errText); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "scan build row").Build()
		}
		e.Status = build.BuildStatus(status)
		e.Start = time.UnixMilli(startedAt)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.Error = errText.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "iterate build rows").Build()
	}
	return entries, nil
}

// Get returns the full report of a recorded build.
func (s *Store) Get(ctx context.Context, id string) (*build.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT report FROM builds WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "query build").
			WithContext("build_id", id).
			Build()
	}

	var r build.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "unmarshal build report").
			WithContext("build_id", id).
			Build()
	}
	return &r, nil
}

// BuildCompleted records the report. Failures are logged, never propagated, so
// a broken history database cannot fail a build.
func (s *Store) BuildCompleted(ctx context.Context, r *build.Report) {
	if err := s.Record(context.WithoutCancel(ctx), r); err != nil {
		observability.WarnContext(ctx, "Failed to record build history", logfields.Error(err))
	}
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
