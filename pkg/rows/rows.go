// Package rows defines the tabular data model shared by the whole
// application: a Row is one record keyed by column name, a sheet is an
// ordered slice of rows, and a Book maps file name → sheet name → rows.
//
// Values are kept as decoded JSON / spreadsheet cell values (string,
// float64, bool, nil). The package performs no validation beyond shape;
// cell-level schemas are out of scope.
package rows

import "strings"

// LockPrefix marks Office lock files (e.g. "~$Book1.xlsx"). Files whose
// name carries this prefix are excluded from processing entirely.
const LockPrefix = "~$"

// Row is a single record: column name → cell value.
type Row map[string]any

// Book is the hierarchical input/output shape: file → sheet → rows.
type Book map[string]map[string][]Row

// Clone returns a shallow copy of the row. Stages copy rows at their
// boundary so a later stage never aliases an earlier stage's output.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsLockFile reports whether name is an Office lock-file artifact.
func IsLockFile(name string) bool {
	return strings.HasPrefix(name, LockPrefix)
}
