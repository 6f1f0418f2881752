package engine

import (
	"context"

	"sheetpipe/internal/config"
)

// rulePasses evaluates one filter rule against the row in env.
//
// A rule whose sheet scope does not match is vacuously true: it does not
// constrain this sheet. In expression mode the target text is evaluated as
// a boolean and the column reference is ignored. Otherwise the column
// reference is resolved (possibly to several candidate names); an empty
// candidate list makes the rule false, and the rule passes as soon as any
// candidate column present in the row satisfies the comparator. The
// right-hand side is resolved once, not once per candidate.
//
// Column lookup here is exact-only; see findColumn for why.
func (e *Engine) rulePasses(ctx context.Context, rule config.Rule, env rowEnv) bool {
	if !e.scopeMatches(ctx, rule.Scope, env) {
		return true
	}

	if rule.Op == config.OpExpr {
		out, err := e.eval.Eval(ctx, rule.Target.V, env.env())
		if err != nil {
			e.log.Warn("rule expression failed", "expr", rule.Target.V, "sheet", env.sheet, "err", err)
			return false
		}
		return truthy(out)
	}

	names := toNames(e.resolve(ctx, rule.Column, env))
	if len(names) == 0 {
		return false
	}
	target := e.resolve(ctx, rule.Target, env)

	for _, name := range names {
		cell, ok := env.row[name]
		if !ok {
			continue
		}
		if compare(rule.Op, cell, target, rule.CaseSensitive, rule.Coerce) {
			return true
		}
	}
	return false
}

// rowPasses combines the whole rule list for one row. AND short-circuits on
// the first failing rule, OR on the first passing one. An empty rule list
// passes everything.
func (e *Engine) rowPasses(ctx context.Context, rules []config.Rule, logic string, env rowEnv) bool {
	if len(rules) == 0 {
		return true
	}
	if logic == "or" {
		for _, r := range rules {
			if e.rulePasses(ctx, r, env) {
				return true
			}
		}
		return false
	}
	for _, r := range rules {
		if !e.rulePasses(ctx, r, env) {
			return false
		}
	}
	return true
}
