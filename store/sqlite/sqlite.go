// Package sqlite implements a session/run index backed by a single SQLite file.
// The index is a queryable mirror of the checkpoint store's on-disk
// manifests; it holds no information the filesystem doesn't already have
// and can always be rebuilt by re-walking sessions/*/runs/*/manifest.json.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// Index is a SQLite-backed session/run index.
type Index struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and ensures
// its schema exists. path may be ":memory:" for tests.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	idx := &Index{db: db}
	if err := idx.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) createSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			latest_stage INTEGER NOT NULL,
			degraded_count INTEGER NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id)`,
	}
	for _, stmt := range stmts {
		if _, err := idx.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: create schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// UpsertSession records or updates a session's summary row.
func (idx *Index) UpsertSession(ctx context.Context, s domain.Session) error {
	_, err := idx.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, title, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET title=excluded.title`,
		s.SessionID, s.Title, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: upsert session %s: %w", s.SessionID, err)
	}
	return nil
}

// UpsertRun records or updates a run's manifest summary row.
func (idx *Index) UpsertRun(ctx context.Context, sessionID string, m domain.RunManifest) error {
	latestStage := m.LatestComplete()
	_, err := idx.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, session_id, created_at, updated_at, latest_stage, degraded_count)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			updated_at=excluded.updated_at, latest_stage=excluded.latest_stage, degraded_count=excluded.degraded_count`,
		m.RunID, sessionID, m.CreatedAt, m.UpdatedAt, latestStage, len(m.DegradedStages))
	if err != nil {
		return fmt.Errorf("sqlite: upsert run %s: %w", m.RunID, err)
	}
	return nil
}

// RunSummary is one row of ListRuns' result.
type RunSummary struct {
	RunID         string
	SessionID     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LatestStage   int
	DegradedCount int
}

// ListRuns returns every indexed run for a session, most recent first.
func (idx *Index) ListRuns(ctx context.Context, sessionID string) ([]RunSummary, error) {
	rows, err := idx.db.QueryContext(ctx,
		`SELECT run_id, session_id, created_at, updated_at, latest_stage, degraded_count
		 FROM runs WHERE session_id = ? ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list runs for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.SessionID, &r.CreatedAt, &r.UpdatedAt, &r.LatestStage, &r.DegradedCount); err != nil {
			return nil, fmt.Errorf("sqlite: scan run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
