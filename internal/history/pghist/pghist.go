// Package pghist implements a Postgres-backed history.Repository using
// pgx/pgxpool, for deployments where several pipeline nodes share one run
// ledger.
package pghist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sheetpipe/internal/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS sheetpipe_runs (
    id          TEXT PRIMARY KEY,
    job         TEXT NOT NULL,
    at          TIMESTAMPTZ NOT NULL,
    file_count  INTEGER NOT NULL,
    sheet_count INTEGER NOT NULL,
    row_in      INTEGER NOT NULL,
    row_out     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS sheetpipe_runs_at ON sheetpipe_runs (at DESC);
`

// Repository is a Postgres-backed implementation of history.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// New connects to Postgres with the given DSN, ensures the runs table
// exists, and returns a Repository plus a close function for cleanup.
func New(ctx context.Context, dsn string) (*Repository, func(), error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil, fmt.Errorf("pghist: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("pghist: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pghist: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pghist: create schema: %w", err)
	}
	return &Repository{pool: pool}, pool.Close, nil
}

// Record stores one completed run.
func (r *Repository) Record(ctx context.Context, run history.Run) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sheetpipe_runs (id, job, at, file_count, sheet_count, row_in, row_out)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Job, run.At.UTC(),
		run.FileCount, run.SheetCount, run.RowIn, run.RowOut,
	)
	if err != nil {
		return fmt.Errorf("pghist: record run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (r *Repository) Recent(ctx context.Context, n int) ([]history.Run, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, job, at, file_count, sheet_count, row_in, row_out
		 FROM sheetpipe_runs ORDER BY at DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("pghist: query recent: %w", err)
	}
	defer rows.Close()

	var out []history.Run
	for rows.Next() {
		var run history.Run
		if err := rows.Scan(&run.ID, &run.Job, &run.At,
			&run.FileCount, &run.SheetCount, &run.RowIn, &run.RowOut); err != nil {
			return nil, fmt.Errorf("pghist: scan run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
