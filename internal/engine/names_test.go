package engine

import (
	"testing"

	"sheetpipe/pkg/rows"
)

/*
TestFindColumn verifies the exact-then-tolerant lookup order: an exact key
always wins, and only when none exists does the trimmed, lower-cased retry
apply.
*/
func TestFindColumn(t *testing.T) {
	row := rows.Row{" Name ": "a", "name": "b", "Amount": 1}

	// exact match wins over the tolerant equivalent of another key
	if got, ok := findColumn(row, "name"); !ok || got != "name" {
		t.Fatalf("findColumn(name) = %q, %v; want exact key \"name\"", got, ok)
	}
	// tolerant fallback: trims and folds case
	if got, ok := findColumn(row, "AMOUNT "); !ok || got != "Amount" {
		t.Fatalf("findColumn(AMOUNT ) = %q, %v; want \"Amount\"", got, ok)
	}
	if _, ok := findColumn(row, "missing"); ok {
		t.Fatalf("findColumn(missing) matched; want no match")
	}
}

/*
TestFindColumn_WhitespaceHeader covers the header-drift case: a row keyed
" Name " is found under the wanted name "name".
*/
func TestFindColumn_WhitespaceHeader(t *testing.T) {
	row := rows.Row{" Name ": "x"}
	got, ok := findColumn(row, "name")
	if !ok || got != " Name " {
		t.Fatalf("findColumn = %q, %v; want \" Name \"", got, ok)
	}
}
