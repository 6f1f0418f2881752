package engine

import (
	"context"

	"sheetpipe/internal/config"
	"sheetpipe/pkg/rows"
)

// renamePair is one concrete from→to mapping after resolution.
type renamePair struct {
	from, to string
}

// resolveRenames expands the rename entries in scope for the current sheet
// into concrete pairs, once per sheet. Each side is resolved independently
// and may yield one or many names; pairs map index-wise with the shorter
// side clamped to its last element, so a single "to" fans out over several
// "from" names and vice versa. An entry with an empty side resolves to no
// pairs (a per-entry no-op, never an error).
func (e *Engine) resolveRenames(ctx context.Context, entries []config.Rename, env rowEnv) []renamePair {
	var pairs []renamePair
	for _, entry := range entries {
		if !e.scopeMatches(ctx, entry.Scope, env) {
			continue
		}
		from := toNames(e.resolve(ctx, entry.From, env))
		to := toNames(e.resolve(ctx, entry.To, env))
		if len(from) == 0 || len(to) == 0 {
			continue
		}
		n := len(from)
		if len(to) > n {
			n = len(to)
		}
		for i := 0; i < n; i++ {
			pairs = append(pairs, renamePair{
				from: from[clamp(i, len(from))],
				to:   to[clamp(i, len(to))],
			})
		}
	}
	return pairs
}

func clamp(i, n int) int {
	if i >= n {
		return n - 1
	}
	return i
}

// applyRenames walks the pairs in list order against the row produced by
// the previous pair, so renames chain within the same list. The "from" side
// must exist as an exact key; a pre-existing "to" key is overwritten (last
// write wins).
func applyRenames(row rows.Row, pairs []renamePair) rows.Row {
	out := row.Clone()
	for _, p := range pairs {
		if p.from == p.to {
			continue
		}
		v, ok := out[p.from]
		if !ok {
			continue
		}
		delete(out, p.from)
		out[p.to] = v
	}
	return out
}

// condRenameActive evaluates the batch-level gate of the conditional rename
// list: one message-scoped comparison per batch, reused across every sheet
// and row. No row or sheet context is bound — the condition is about the
// message, not the data.
func (e *Engine) condRenameActive(ctx context.Context, c config.CondRename, msg map[string]any) bool {
	if !c.Enabled || len(c.Renames) == 0 {
		return false
	}
	env := rowEnv{msg: msg}
	left := e.resolve(ctx, c.Left, env)
	right := e.resolve(ctx, c.Right, env)
	return compare(c.Op, left, right, c.CaseSensitive, c.Coerce)
}
