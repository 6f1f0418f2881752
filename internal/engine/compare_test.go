package engine

import (
	"testing"

	"sheetpipe/internal/config"
)

/*
TestCompare exercises the comparator semantics table: loose equality with
coercion and case flags, always-numified ordering, string-only contains,
fail-closed regex, and whitespace-aware emptiness.
*/
func TestCompare(t *testing.T) {
	cases := []struct {
		name          string
		op            string
		left, right   any
		caseSensitive bool
		coerce        bool
		want          bool
	}{
		{"eq strings", config.OpEq, "OK", "OK", true, false, true},
		{"eq case insensitive", config.OpEq, "ok", "OK", false, false, true},
		{"eq case sensitive", config.OpEq, "ok", "OK", true, false, false},
		{"eq coerced number vs string", config.OpEq, "10", float64(10), true, true, true},
		{"eq uncoerced number formats equal", config.OpEq, float64(10), "10", true, false, true},
		{"neq", config.OpNeq, "a", "b", true, false, true},

		{"gte numeric strings", config.OpGte, "10", "8", true, false, true},
		{"gte always numifies", config.OpGte, "10", "8", true, false, true},
		{"lt", config.OpLt, "5", "8", true, false, true},
		{"ordering non-numeric is false", config.OpGt, "abc", "1", true, true, false},
		{"ordering nil is false", config.OpGt, nil, "1", true, true, false},
		{"ordering bool counts as one", config.OpGte, true, "1", true, false, true},

		{"contains", config.OpContains, "workbook", "book", true, false, true},
		{"contains case insensitive", config.OpContains, "WorkBook", "book", false, false, true},
		{"contains non-string left", config.OpContains, float64(12), "1", true, false, false},
		{"ncontains non-string is true", config.OpNContains, float64(12), "1", true, false, true},
		{"ncontains", config.OpNContains, "abc", "x", true, false, true},

		{"regex match", config.OpRegex, "Sheet12", `^Sheet\d+$`, true, false, true},
		{"regex stringified left", config.OpRegex, float64(42), `^42$`, true, false, true},
		{"regex invalid pattern is false", config.OpRegex, "anything", `(`, true, false, false},

		{"empty nil", config.OpEmpty, nil, nil, true, false, true},
		{"empty whitespace", config.OpEmpty, "   ", nil, true, false, true},
		{"empty non-empty", config.OpEmpty, "x", nil, true, false, false},
		{"nempty", config.OpNEmpty, "x", nil, true, false, true},
		{"nempty zero number", config.OpNEmpty, float64(0), nil, true, false, true},

		{"unknown comparator is false", "between", "a", "b", true, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := compare(tc.op, tc.left, tc.right, tc.caseSensitive, tc.coerce)
			if got != tc.want {
				t.Fatalf("compare(%s, %#v, %#v, case=%v, coerce=%v) = %v; want %v",
					tc.op, tc.left, tc.right, tc.caseSensitive, tc.coerce, got, tc.want)
			}
		})
	}
}

/*
TestToNumber documents the numification rules shared by the ordering
comparators and coerced equality.
*/
func TestToNumber(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{"10", 10, true},
		{" 10.5 ", 10.5, true},
		{float64(3), 3, true},
		{int(7), 7, true},
		{true, 1, true},
		{false, 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := toNumber(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("toNumber(%#v) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
