package engine

import (
	"context"
	"reflect"
	"testing"

	"sheetpipe/internal/config"
	"sheetpipe/pkg/rows"
)

/*
TestColumnSet_UnionOrderedDedup: entries are evaluated independently and
unioned; insertion order is preserved, duplicates collapse.
*/
func TestColumnSet_UnionOrderedDedup(t *testing.T) {
	e := newTestEngine()
	env := rowEnv{msg: map[string]any{}, sheet: "Sheet1"}

	set := e.columnSet(context.Background(), []config.Select{
		{Column: str("B")},
		{Column: config.Value{V: `["A", "B", "C"]`, Kind: config.KindExpr}},
	}, env)

	want := []string{"B", "A", "C"}
	if !reflect.DeepEqual(set, want) {
		t.Fatalf("set = %v; want %v", set, want)
	}
}

/*
TestColumnSet_ScopedOut: entries whose sheet scope does not match
contribute nothing.
*/
func TestColumnSet_ScopedOut(t *testing.T) {
	e := newTestEngine()
	env := rowEnv{msg: map[string]any{}, sheet: "Other"}
	set := e.columnSet(context.Background(), []config.Select{
		{Scope: str("Sheet1"), Column: str("A")},
	}, env)
	if len(set) != 0 {
		t.Fatalf("set = %v; want empty", set)
	}
}

/*
TestApplySelect_KeepDrop covers both modes, the tolerant lookup, and the
silent omission of unresolved names.
*/
func TestApplySelect_KeepDrop(t *testing.T) {
	row := rows.Row{" Name ": "n", "Amount": 1, "Note": "x"}

	keep := applySelect(row, config.SelectKeep, []string{"name", "Amount", "Missing"})
	wantKeep := rows.Row{" Name ": "n", "Amount": 1}
	if !reflect.DeepEqual(keep, wantKeep) {
		t.Fatalf("keep = %#v; want %#v", keep, wantKeep)
	}

	drop := applySelect(row, config.SelectDrop, []string{"name", "Missing"})
	wantDrop := rows.Row{"Amount": 1, "Note": "x"}
	if !reflect.DeepEqual(drop, wantDrop) {
		t.Fatalf("drop = %#v; want %#v", drop, wantDrop)
	}
}

/*
TestApplySelect_EmptySetIsNoOp: an empty resolved set under keep must not
produce all-empty rows; the stage does nothing.
*/
func TestApplySelect_EmptySetIsNoOp(t *testing.T) {
	row := rows.Row{"A": 1}
	out := applySelect(row, config.SelectKeep, nil)
	if !reflect.DeepEqual(out, row) {
		t.Fatalf("out = %#v; want input unchanged", out)
	}
}

/*
TestApplySelect_KeepIdempotent: running keep twice yields the same result
as once.
*/
func TestApplySelect_KeepIdempotent(t *testing.T) {
	row := rows.Row{"A": 1, "B": 2, "C": 3}
	set := []string{"A", "B"}
	once := applySelect(row, config.SelectKeep, set)
	twice := applySelect(once, config.SelectKeep, set)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("keep not idempotent: once=%#v twice=%#v", once, twice)
	}
}
