package engine

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"sheetpipe/internal/config"
	"sheetpipe/internal/metrics"
	"sheetpipe/pkg/rows"
)

// Run evaluates cfg against one batch and returns the restructured result.
//
// Files are processed in name order, sheets in name order within each file,
// rows strictly in original order — every expression evaluation is awaited
// in place, so shared flow/global state mutated by one evaluation
// deterministically affects later ones in the same run. Run holds the
// engine lock for the whole batch: a second batch is not accepted until the
// first completes, including the output write.
//
// The per-sheet stage order is fixed: filter, select, static rename,
// conditional rename, derive. Select runs against the original sheet
// headers. Office lock files (~$ prefix) contribute nothing to counts or
// output.
func (e *Engine) Run(ctx context.Context, cfg config.Pipeline, in Input) (res *Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.RecordRun(cfg.Job, err, time.Since(start))
	}()

	if in.Data == nil {
		return nil, fmt.Errorf("%w (set input.data to a file → sheet → rows map)", ErrBadInput)
	}

	include := compilePatterns(cfg.IncludeSheets)
	exclude := compilePatterns(cfg.ExcludeSheets)

	// Gate evaluated once per batch, reused across all sheets.
	condActive := e.condRenameActive(ctx, cfg.CondRename, in.Msg)

	var sum Summary
	hier := rows.Book{}
	var flat []rows.Row

	for _, fileName := range sortedKeys(in.Data) {
		if rows.IsLockFile(fileName) {
			continue
		}
		sheets := in.Data[fileName]
		sum.FileCount++
		outSheets := map[string][]rows.Row{}

		for _, sheetName := range sortedSheetKeys(sheets) {
			if !sheetSelected(sheetName, len(cfg.IncludeSheets) > 0, include, exclude) {
				continue
			}
			sheetRows := sheets[sheetName]
			sum.SheetCount++
			sum.RowIn += len(sheetRows)

			sheetEnv := rowEnv{msg: in.Msg, sheet: sheetName}
			out := make([]rows.Row, 0, len(sheetRows))

			// Filter runs per row; the remaining stages resolve their
			// configuration once per sheet against the surviving rows.
			kept := make([]rows.Row, 0, len(sheetRows))
			for _, row := range sheetRows {
				env := sheetEnv
				env.row = row
				if e.rowPasses(ctx, cfg.Rules, cfg.Logic, env) {
					kept = append(kept, row)
				}
			}

			set := e.columnSet(ctx, cfg.Selects, sheetEnv)
			static := e.resolveRenames(ctx, cfg.Renames, sheetEnv)
			var conditional []renamePair
			if condActive {
				conditional = e.resolveRenames(ctx, cfg.CondRename.Renames, sheetEnv)
			}

			for _, row := range kept {
				row = applySelect(row, cfg.SelectMode, set)
				row = applyRenames(row, static)
				if condActive {
					row = applyRenames(row, conditional)
				}
				env := sheetEnv
				env.row = row
				row = e.applyDerives(ctx, cfg.Derives, env)
				out = append(out, row)
			}

			sum.RowOut += len(out)
			if cfg.Output.Structure == config.StructureFlat {
				for _, row := range out {
					fr := row.Clone()
					fr["_file"] = fileName
					fr["_sheet"] = sheetName
					flat = append(flat, fr)
				}
			} else {
				outSheets[sheetName] = out
			}
		}

		if cfg.Output.Structure != config.StructureFlat {
			hier[fileName] = outSheets
		}
	}

	res = &Result{}
	if cfg.Output.Structure == config.StructureFlat {
		if flat == nil {
			flat = []rows.Row{}
		}
		res.Data = flat
	} else {
		res.Data = hier
	}
	if cfg.Output.Summary {
		if sum.RowIn > 0 {
			ratio := float64(sum.RowOut) / float64(sum.RowIn)
			sum.FilteredRatio = &ratio
		}
		res.Summary = &sum
	}
	if cfg.Output.Rules {
		res.Rules = &RulesEcho{Logic: cfg.Logic, Count: len(cfg.Rules)}
	}

	if err := e.writeOutput(cfg.Output, in.Msg, res); err != nil {
		return nil, err
	}

	metrics.RecordRows(cfg.Job, "in", sum.RowIn)
	metrics.RecordRows(cfg.Job, "out", sum.RowOut)
	e.log.Info("batch processed",
		"job", cfg.Job,
		"files", sum.FileCount,
		"sheets", sum.SheetCount,
		"rowsIn", sum.RowIn,
		"rowsOut", sum.RowOut,
		"duration", time.Since(start))
	return res, nil
}

// writeOutput lands the result object at the configured scope and path.
// The msg scope writes into the batch message map owned by the caller.
func (e *Engine) writeOutput(out config.Output, msg map[string]any, res *Result) error {
	obj := map[string]any{"data": res.Data}
	if res.Summary != nil {
		obj["summary"] = res.Summary
	}
	if res.Rules != nil {
		obj["rules"] = res.Rules
	}
	if err := e.store.Set(out.Scope, out.Path, msg, obj); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// sheetSelected applies the include/exclude name patterns. An empty include
// list admits every sheet. Patterns that failed to compile were dropped
// up front, which makes an invalid pattern behave as "does not match":
// a configured include list whose patterns are all invalid admits nothing.
func sheetSelected(name string, hasInclude bool, include, exclude []*regexp.Regexp) bool {
	if hasInclude {
		hit := false
		for _, re := range include {
			if re.MatchString(name) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, re := range exclude {
		if re.MatchString(name) {
			return false
		}
	}
	return true
}

func compilePatterns(pats []string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, p := range pats {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}

func sortedKeys(m rows.Book) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSheetKeys(m map[string][]rows.Row) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
