package engine

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"sheetpipe/internal/config"
)

// resolve turns a dynamic configuration value into a concrete runtime value
// given the current evaluation context. Only the expr kind can block; every
// other kind is a pure lookup. An expression failure resolves to nil with a
// diagnostic — callers treat nil as "does not apply", never as a reason to
// abort the batch.
func (e *Engine) resolve(ctx context.Context, v config.Value, env rowEnv) any {
	switch v.Kind {
	case config.KindNumber:
		f, err := strconv.ParseFloat(v.V, 64)
		if err != nil {
			return nil
		}
		return f
	case config.KindBool:
		return v.V == "true"
	case config.KindMsg, config.KindFlow, config.KindGlobal:
		got, ok := e.store.Get(v.Kind, v.V, env.msg)
		if !ok {
			return nil
		}
		return got
	case config.KindEnv:
		val, ok := os.LookupEnv(v.V)
		if !ok {
			return nil
		}
		return val
	case config.KindExpr:
		out, err := e.eval.Eval(ctx, v.V, env.env())
		if err != nil {
			e.log.Warn("expression failed", "expr", v.V, "sheet", env.sheet, "err", err)
			return nil
		}
		return out
	default:
		// str, re and unset kinds carry their raw text.
		if v.V == "" {
			return nil
		}
		return v.V
	}
}

// toNames normalizes a resolved column reference to a list of column names:
// nil becomes empty, a list is stringified element-wise, and any scalar
// becomes a one-element list.
func toNames(v any) []string {
	switch vv := v.(type) {
	case nil:
		return nil
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if x == nil {
				continue
			}
			out = append(out, stringify(x))
		}
		return out
	default:
		return []string{stringify(v)}
	}
}

// stringify renders a value the way it would appear in a cell: numbers drop
// a trailing ".0", booleans become "true"/"false".
func stringify(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(vv), 'f', -1, 32)
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case bool:
		return strconv.FormatBool(vv)
	default:
		return fmt.Sprintf("%v", v)
	}
}
