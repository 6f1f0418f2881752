// Package history records completed batch runs so operators can inspect
// what a pipeline did over time: which job ran, when, and the summary
// counts it produced.
//
// The package mirrors the metrics abstraction pattern: a narrow Repository
// interface with a no-op default, and concrete database-backed
// implementations isolated in subpackages (sqlitehist, pghist).
package history

import (
	"context"
	"time"
)

// Run is one recorded batch run.
type Run struct {
	// ID is a caller-assigned unique identifier (a UUID in practice).
	ID string

	// Job is the pipeline job name the run executed under.
	Job string

	// At is when the run finished.
	At time.Time

	FileCount  int
	SheetCount int
	RowIn      int
	RowOut     int
}

// Repository persists and queries run records.
type Repository interface {
	// Record stores one completed run.
	Record(ctx context.Context, run Run) error

	// Recent returns up to n runs, newest first.
	Recent(ctx context.Context, n int) ([]Run, error)
}

// Nop is the default Repository: it stores nothing and returns nothing.
type Nop struct{}

func (Nop) Record(ctx context.Context, run Run) error        { return nil }
func (Nop) Recent(ctx context.Context, n int) ([]Run, error) { return nil, nil }
