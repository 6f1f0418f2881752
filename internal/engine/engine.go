// Package engine implements the rule/transform evaluation core: the ordered
// pipeline that scopes sheets, filters rows against a declarative rule list,
// applies select / rename / conditional-rename / derive stages in a fixed
// order, and assembles the hierarchical or flat result with run statistics.
//
// The engine does not parse spreadsheets and does not own configuration
// persistence. It consumes already-parsed file → sheet → rows structures
// (rows.Book) together with a config.Pipeline, and depends on two injected
// capabilities: an expression Evaluator and a ContextStore for the
// msg/flow/global scopes. Both are interfaces so the engine is testable
// without a host runtime.
//
// Execution is strictly sequential: rows are processed in original order,
// one batch at a time, so shared context mutated by one expression
// deterministically affects later evaluations of the same run.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"sheetpipe/pkg/rows"
)

// ErrBadInput reports a malformed batch root: the input carries no data
// map. This is fatal for the whole invocation; no partial output is
// produced.
var ErrBadInput = errors.New("engine: input has no data map")

// Evaluator runs expression text against an environment. Evaluation may
// block (the engine awaits it in place); a returned error is always
// recoverable from the pipeline's point of view.
type Evaluator interface {
	Eval(ctx context.Context, src string, env map[string]any) (any, error)
}

// ContextStore is the host capability for scoped shared state: get/set of a
// value at a dotted path within the msg, flow or global scope. msg is the
// current batch message, consulted only for the msg scope.
type ContextStore interface {
	Get(scope, path string, msg map[string]any) (any, bool)
	Set(scope, path string, msg map[string]any, value any) error
}

// Engine evaluates pipelines against batches. Safe to share; Run serializes
// batches internally so a second batch never observes partial state from a
// prior in-flight one.
type Engine struct {
	mu    sync.Mutex
	eval  Evaluator
	store ContextStore
	log   *slog.Logger
}

// New returns an Engine using the given evaluator and context store. A nil
// logger falls back to slog.Default.
func New(eval Evaluator, store ContextStore, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{eval: eval, store: store, log: log}
}

// Input is one batch: the parsed workbook data plus the batch message the
// msg scope and expressions are bound to.
type Input struct {
	Data rows.Book
	Msg  map[string]any
}

// Summary carries the run statistics emitted alongside the data.
type Summary struct {
	FileCount  int      `json:"fileCount"`
	SheetCount int      `json:"sheetCount"`
	RowIn      int      `json:"rowIn"`
	RowOut     int      `json:"rowOut"`
	// FilteredRatio is RowOut/RowIn, omitted when RowIn is zero.
	FilteredRatio *float64 `json:"filteredRatio,omitempty"`
}

// RulesEcho mirrors the active filter configuration back to the consumer.
type RulesEcho struct {
	Logic string `json:"logic"`
	Count int    `json:"count"`
}

// Result is the restructured output of one run. Data is either a rows.Book
// (hierarchical) or []rows.Row with _file/_sheet injected (flat).
type Result struct {
	Data    any        `json:"data"`
	Summary *Summary   `json:"summary,omitempty"`
	Rules   *RulesEcho `json:"rules,omitempty"`
}

// rowEnv is the evaluation context threaded through every resolution step of
// a run: the batch message plus the row and sheet in scope, if any.
type rowEnv struct {
	msg   map[string]any
	row   rows.Row
	sheet string
}

// env builds the expression environment. Absent row/sheet bind as nil/""
// rather than being omitted, keeping expression behavior uniform across
// stages.
func (c rowEnv) env() map[string]any {
	return map[string]any{
		"msg":   c.msg,
		"row":   map[string]any(c.row),
		"sheet": c.sheet,
	}
}
