package engine

import (
	"context"

	"sheetpipe/internal/config"
	"sheetpipe/pkg/rows"
)

// columnSet expands the select list into the concrete, ordered set of
// column names in scope for the current sheet. Entries are evaluated
// independently and unioned; insertion order is preserved, duplicates
// collapse. Resolution happens once per sheet, before any row is touched,
// so the set reflects the original headers.
func (e *Engine) columnSet(ctx context.Context, specs []config.Select, env rowEnv) []string {
	var set []string
	seen := map[string]struct{}{}
	for _, s := range specs {
		if !e.scopeMatches(ctx, s.Scope, env) {
			continue
		}
		for _, name := range toNames(e.resolve(ctx, s.Column, env)) {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			set = append(set, name)
		}
	}
	return set
}

// applySelect projects one row through the keep/drop mode. Lookup is
// tolerant (findColumn); names that resolve to no column are silently
// omitted. An empty set means nothing was actually resolved, so the stage
// is a no-op rather than an accidental all-empty projection.
func applySelect(row rows.Row, mode string, set []string) rows.Row {
	if len(set) == 0 || mode == config.SelectNone {
		return row.Clone()
	}
	matched := make(map[string]struct{}, len(set))
	var order []string
	for _, wanted := range set {
		if actual, ok := findColumn(row, wanted); ok {
			if _, dup := matched[actual]; !dup {
				matched[actual] = struct{}{}
				order = append(order, actual)
			}
		}
	}
	out := make(rows.Row, len(row))
	switch mode {
	case config.SelectKeep:
		for _, k := range order {
			out[k] = row[k]
		}
	case config.SelectDrop:
		for k, v := range row {
			if _, drop := matched[k]; !drop {
				out[k] = v
			}
		}
	}
	return out
}
