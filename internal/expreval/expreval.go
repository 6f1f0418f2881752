// Package expreval evaluates the small dynamic expressions used throughout a
// pipeline (rule targets, computed column references, derived columns, sheet
// scopes) with github.com/expr-lang/expr.
//
// The engine treats this package as an opaque service behind its Evaluator
// interface: text in, value out, error on bad syntax or a failed run.
// Compiled programs are cached by sanitized source, so repeated per-row
// evaluation of the same expression pays compilation once.
//
// Expressions are bound to an environment with msg, row and sheet, plus a
// few convenience functions (uppercase, lowercase, number) on top of the
// library's builtins. Note that expr uses "contains" as a string operator;
// use "in" for membership checks.
package expreval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator compiles and runs expression text against an environment. It is
// safe for concurrent use, although the pipeline itself evaluates strictly
// sequentially.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// New returns an Evaluator with an empty program cache.
func New() *Evaluator {
	return &Evaluator{cache: make(map[string]*vm.Program)}
}

// Eval sanitizes src, compiles it (or reuses a cached program) and runs it
// against env. The env map is extended with the helper functions; caller
// keys win on collision.
func (e *Evaluator) Eval(ctx context.Context, src string, env map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src = Sanitize(src)
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("empty expression")
	}

	full := make(map[string]any, len(env)+len(helpers))
	for k, v := range helpers {
		full[k] = v
	}
	for k, v := range env {
		full[k] = v
	}

	prog, err := e.compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	out, err := expr.Run(prog, full)
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", src, err)
	}
	return out, nil
}

func (e *Evaluator) compile(src string) (*vm.Program, error) {
	e.mu.RLock()
	prog, ok := e.cache[src]
	e.mu.RUnlock()
	if ok {
		return prog, nil
	}
	prog, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.cache[src] = prog
	e.mu.Unlock()
	return prog, nil
}

var helpers = map[string]any{
	"uppercase": func(v any) string { return strings.ToUpper(toString(v)) },
	"lowercase": func(v any) string { return strings.ToLower(toString(v)) },
	"number": func(v any) float64 {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case bool:
			if n {
				return 1
			}
			return 0
		default:
			var f float64
			fmt.Sscanf(strings.TrimSpace(toString(v)), "%g", &f)
			return f
		}
	},
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
