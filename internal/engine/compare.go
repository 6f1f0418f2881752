package engine

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"sheetpipe/internal/config"
)

// compare applies one comparator between a cell value and the resolved
// right-hand side. Semantics:
//
//   - eq/neq: loose equality after optional numeric coercion and
//     lower-casing.
//   - lt/lte/gt/gte: both sides numified regardless of the coerce flag; a
//     side that is not a number makes the comparison false.
//   - contains/ncontains: only meaningful between strings; non-string
//     operands make contains false and ncontains true.
//   - regex: the right side compiled as a pattern and tested against the
//     stringified left side; an invalid pattern is false.
//   - empty/nempty: empty means nil or a whitespace-only string.
func compare(op string, left, right any, caseSensitive, coerce bool) bool {
	switch op {
	case config.OpEq:
		return looseEqual(left, right, caseSensitive, coerce)
	case config.OpNeq:
		return !looseEqual(left, right, caseSensitive, coerce)
	case config.OpLt, config.OpLte, config.OpGt, config.OpGte:
		lf, lok := toNumber(left)
		rf, rok := toNumber(right)
		if !lok || !rok {
			return false
		}
		switch op {
		case config.OpLt:
			return lf < rf
		case config.OpLte:
			return lf <= rf
		case config.OpGt:
			return lf > rf
		default:
			return lf >= rf
		}
	case config.OpContains, config.OpNContains:
		ls, lok := left.(string)
		rs, rok := right.(string)
		if !lok || !rok {
			return op == config.OpNContains
		}
		if !caseSensitive {
			ls, rs = strings.ToLower(ls), strings.ToLower(rs)
		}
		got := strings.Contains(ls, rs)
		if op == config.OpNContains {
			return !got
		}
		return got
	case config.OpRegex:
		re, err := regexp.Compile(stringify(right))
		if err != nil {
			return false
		}
		return re.MatchString(stringify(left))
	case config.OpEmpty:
		return isEmptyValue(left)
	case config.OpNEmpty:
		return !isEmptyValue(left)
	default:
		return false
	}
}

func looseEqual(left, right any, caseSensitive, coerce bool) bool {
	if coerce {
		if lf, lok := toNumber(left); lok {
			if rf, rok := toNumber(right); rok {
				return lf == rf
			}
		}
	}
	ls, rs := stringify(left), stringify(right)
	if !caseSensitive {
		ls, rs = strings.ToLower(ls), strings.ToLower(rs)
	}
	return ls == rs
}

// toNumber converts a value for the ordering comparators. Booleans count as
// 0/1; a string must trim to a parseable number. The second return is false
// when no number can be made (the NaN case).
func toNumber(v any) (float64, bool) {
	switch vv := v.(type) {
	case float64:
		return vv, !math.IsNaN(vv)
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case bool:
		if vv {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(vv), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
