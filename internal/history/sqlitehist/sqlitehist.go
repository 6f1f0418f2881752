// Package sqlitehist implements a SQLite-backed history.Repository using
// database/sql. A single local file keeps run history available without any
// external service, which suits the common single-node deployment.
package sqlitehist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sheetpipe/internal/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    job         TEXT NOT NULL,
    at          TEXT NOT NULL,
    file_count  INTEGER NOT NULL,
    sheet_count INTEGER NOT NULL,
    row_in      INTEGER NOT NULL,
    row_out     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_at ON runs (at DESC);
`

// Repository is a SQLite-backed implementation of history.Repository.
type Repository struct {
	db *sql.DB
}

// New opens the SQLite database at dsn, creates the runs table if missing,
// and returns a Repository plus a close function for cleanup.
//
// DSN is passed directly to database/sql; for example:
//
//	"file:sheetpipe.db?cache=shared"
//	"sheetpipe.db"
func New(ctx context.Context, dsn string) (*Repository, func(), error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil, fmt.Errorf("sqlitehist: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlitehist: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlitehist: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlitehist: create schema: %w", err)
	}
	return &Repository{db: db}, func() { db.Close() }, nil
}

// Record stores one completed run.
func (r *Repository) Record(ctx context.Context, run history.Run) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, job, at, file_count, sheet_count, row_in, row_out)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Job, run.At.UTC().Format(time.RFC3339Nano),
		run.FileCount, run.SheetCount, run.RowIn, run.RowOut,
	)
	if err != nil {
		return fmt.Errorf("sqlitehist: record run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (r *Repository) Recent(ctx context.Context, n int) ([]history.Run, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, job, at, file_count, sheet_count, row_in, row_out
		 FROM runs ORDER BY at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("sqlitehist: query recent: %w", err)
	}
	defer rows.Close()

	var out []history.Run
	for rows.Next() {
		var run history.Run
		var at string
		if err := rows.Scan(&run.ID, &run.Job, &at,
			&run.FileCount, &run.SheetCount, &run.RowIn, &run.RowOut); err != nil {
			return nil, fmt.Errorf("sqlitehist: scan run: %w", err)
		}
		run.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, run)
	}
	return out, rows.Err()
}
