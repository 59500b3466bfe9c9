// Package mysql implements the same session/run index schema as store/sqlite,
// for deployments that need a shared server-backed index rather than a
// single local file.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
	"github.com/wayfarerlabs/discovery-pipeline/store/sqlite"
)

// Index is a MySQL-backed session/run index with the same query surface as
// store/sqlite.Index.
type Index struct {
	db *sql.DB
}

// Open connects to dsn (e.g. "user:pass@tcp(localhost:3306)/discovery"),
// verifies the connection, and ensures the schema exists.
func Open(dsn string) (*Index, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
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
			session_id VARCHAR(128) PRIMARY KEY,
			title VARCHAR(512) NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR(128) PRIMARY KEY,
			session_id VARCHAR(128) NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			latest_stage INT NOT NULL,
			degraded_count INT NOT NULL,
			INDEX idx_runs_session (session_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := idx.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql: create schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// UpsertSession records or updates a session's summary row.
func (idx *Index) UpsertSession(ctx context.Context, s domain.Session) error {
	_, err := idx.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, title, created_at) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE title=VALUES(title)`,
		s.SessionID, s.Title, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("mysql: upsert session %s: %w", s.SessionID, err)
	}
	return nil
}

// UpsertRun records or updates a run's manifest summary row.
func (idx *Index) UpsertRun(ctx context.Context, sessionID string, m domain.RunManifest) error {
	latestStage := m.LatestComplete()
	_, err := idx.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, session_id, created_at, updated_at, latest_stage, degraded_count)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE updated_at=VALUES(updated_at), latest_stage=VALUES(latest_stage), degraded_count=VALUES(degraded_count)`,
		m.RunID, sessionID, m.CreatedAt, m.UpdatedAt, latestStage, len(m.DegradedStages))
	if err != nil {
		return fmt.Errorf("mysql: upsert run %s: %w", m.RunID, err)
	}
	return nil
}

// ListRuns returns every indexed run for a session, most recent first.
// Shares its result shape with store/sqlite so callers can switch backends
// without changing call sites.
func (idx *Index) ListRuns(ctx context.Context, sessionID string) ([]sqlite.RunSummary, error) {
	rows, err := idx.db.QueryContext(ctx,
		`SELECT run_id, session_id, created_at, updated_at, latest_stage, degraded_count
		 FROM runs WHERE session_id = ? ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("mysql: list runs for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []sqlite.RunSummary
	for rows.Next() {
		var r sqlite.RunSummary
		if err := rows.Scan(&r.RunID, &r.SessionID, &r.CreatedAt, &r.UpdatedAt, &r.LatestStage, &r.DegradedCount); err != nil {
			return nil, fmt.Errorf("mysql: scan run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
