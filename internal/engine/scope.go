package engine

import (
	"context"
	"regexp"

	"sheetpipe/internal/config"
)

// scopeMatches decides whether a rule or list entry applies to the sheet in
// env. An unset scope matches every sheet; that is how "applies everywhere"
// is expressed. An invalid regex pattern fails closed (never matches, never
// errors).
func (e *Engine) scopeMatches(ctx context.Context, scope config.Value, env rowEnv) bool {
	if scope.V == "" {
		return true
	}
	switch scope.Kind {
	case config.KindRegex:
		re, err := regexp.Compile(scope.V)
		if err != nil {
			return false
		}
		return re.MatchString(env.sheet)
	case config.KindExpr:
		out, err := e.eval.Eval(ctx, scope.V, env.env())
		if err != nil {
			e.log.Warn("scope expression failed", "expr", scope.V, "sheet", env.sheet, "err", err)
			return false
		}
		return truthy(out)
	default:
		// Literal and path kinds compare their resolved text to the name.
		return stringify(e.resolve(ctx, scope, env)) == env.sheet
	}
}

// truthy mirrors the loose boolean the expression language exposes: nil,
// false, zero and the empty string are false, everything else is true.
func truthy(v any) bool {
	switch vv := v.(type) {
	case nil:
		return false
	case bool:
		return vv
	case string:
		return vv != ""
	case float64:
		return vv != 0 && vv == vv
	case int:
		return vv != 0
	case int64:
		return vv != 0
	default:
		return true
	}
}
