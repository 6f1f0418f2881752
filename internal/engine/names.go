package engine

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"sheetpipe/pkg/rows"
)

// findColumn locates wanted among the row's keys: exact match first, then a
// tolerant retry with both sides trimmed, lower-cased and NFC-normalized.
// Exact always wins, so matching is never silently ambiguous.
//
// Select uses this; rule evaluation and rename deliberately do not — those
// lookups require exact key presence, while projection is forgiving of
// header whitespace and case drift.
func findColumn(row rows.Row, wanted string) (string, bool) {
	if _, ok := row[wanted]; ok {
		return wanted, true
	}
	folded := foldName(wanted)
	for k := range row {
		if foldName(k) == folded {
			return k, true
		}
	}
	return "", false
}

// foldName canonicalizes a header name for tolerant comparison. Spreadsheet
// headers pasted between tools drift in whitespace, case and unicode
// composition; NFC keeps "é" equal to "é".
func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
}
