package engine

import (
	"context"

	"sheetpipe/internal/config"
	"sheetpipe/pkg/rows"
)

// applyDerives computes the additional columns for one row, post-rename.
// Entries run in order; a failing expression leaves the row unchanged for
// that column and never aborts the remaining entries or drops the row.
func (e *Engine) applyDerives(ctx context.Context, entries []config.Derive, env rowEnv) rows.Row {
	out := env.row.Clone()
	for _, d := range entries {
		if d.Column == "" {
			continue
		}
		scoped := env
		scoped.row = out
		val, err := e.eval.Eval(ctx, d.Expr, scoped.env())
		if err != nil {
			e.log.Warn("derive expression failed",
				"column", d.Column, "expr", d.Expr, "sheet", env.sheet, "err", err)
			continue
		}
		out[d.Column] = val
	}
	return out
}
