package engine

import (
	"context"
	"testing"

	"sheetpipe/internal/config"
	"sheetpipe/pkg/rows"
)

/*
TestRulePasses exercises the single-rule semantics: vacuous truth on a
non-matching scope, expression mode, multi-valued column references, the
exact-only column lookup, and the empty-candidate case.
*/
func TestRulePasses(t *testing.T) {
	e := newTestEngine()
	env := rowEnv{
		msg:   map[string]any{"region": "EU"},
		row:   rows.Row{"Status": "OK", "Amount": "10", " Name ": "bob"},
		sheet: "Sheet1",
	}

	tests := []struct {
		name string
		rule config.Rule
		want bool
	}{
		{
			name: "scope mismatch is vacuously true",
			rule: config.Rule{Scope: str("Other"), Column: str("Status"), Op: config.OpEq, Target: str("NO")},
			want: true,
		},
		{
			name: "plain equality",
			rule: config.Rule{Column: str("Status"), Op: config.OpEq, Target: str("OK")},
			want: true,
		},
		{
			name: "expr mode ignores column",
			rule: config.Rule{Column: str("nonexistent"), Op: config.OpExpr, Target: config.Value{V: `row.Status == "OK"`, Kind: config.KindExpr}},
			want: true,
		},
		{
			name: "expr mode false",
			rule: config.Rule{Op: config.OpExpr, Target: config.Value{V: `row.Amount == "5"`, Kind: config.KindExpr}},
			want: false,
		},
		{
			name: "expr mode error fails the rule",
			rule: config.Rule{Op: config.OpExpr, Target: config.Value{V: `row.Status ==`, Kind: config.KindExpr}},
			want: false,
		},
		{
			name: "multi-valued column passes on any candidate",
			rule: config.Rule{
				Column: config.Value{V: `["Missing", "Status"]`, Kind: config.KindExpr},
				Op:     config.OpEq, Target: str("OK"),
			},
			want: true,
		},
		{
			name: "empty candidate list is false",
			rule: config.Rule{
				Column: config.Value{V: `[]`, Kind: config.KindExpr},
				Op:     config.OpNEmpty,
			},
			want: false,
		},
		{
			name: "rule lookup is exact, not tolerant",
			rule: config.Rule{Column: str("name"), Op: config.OpEq, Target: str("bob")},
			want: false,
		},
		{
			name: "message-scoped target",
			rule: config.Rule{Column: str("Status"), Op: config.OpNeq, Target: config.Value{V: "region", Kind: config.KindMsg}},
			want: true,
		},
		{
			name: "coerced numeric comparison",
			rule: config.Rule{Column: str("Amount"), Op: config.OpGte, Target: str("8"), Coerce: true},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.rulePasses(context.Background(), tt.rule, env); got != tt.want {
				t.Fatalf("rulePasses() = %v; want %v", got, tt.want)
			}
		})
	}
}

/*
TestRowPasses covers the and/or combination and the empty-list default.
*/
func TestRowPasses(t *testing.T) {
	e := newTestEngine()
	env := rowEnv{
		msg:   map[string]any{},
		row:   rows.Row{"Status": "OK", "Amount": "10"},
		sheet: "Sheet1",
	}
	pass := config.Rule{Column: str("Status"), Op: config.OpEq, Target: str("OK")}
	fail := config.Rule{Column: str("Status"), Op: config.OpEq, Target: str("NO")}

	tests := []struct {
		name  string
		rules []config.Rule
		logic string
		want  bool
	}{
		{"empty list passes", nil, "and", true},
		{"and all pass", []config.Rule{pass, pass}, "and", true},
		{"and one fails", []config.Rule{pass, fail}, "and", false},
		{"or one passes", []config.Rule{fail, pass}, "or", true},
		{"or none pass", []config.Rule{fail, fail}, "or", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.rowPasses(context.Background(), tt.rules, tt.logic, env); got != tt.want {
				t.Fatalf("rowPasses() = %v; want %v", got, tt.want)
			}
		})
	}
}
