// Package config defines the canonical, JSON-serializable configuration model
// for a sheet pipeline. It is intentionally small and explicit so that
// pipelines can be loaded from disk (or the admin API) and passed through the
// program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in pipeline
//     documents.
//  3. Tolerance: Partial documents decode cleanly; ApplyDefaults fills every
//     missing optional field rather than failing the load.
//
// Example (trimmed):
//
//	{
//	  "logic": "and",
//	  "rules": [
//	    { "column": {"value":"Amount","type":"str"},
//	      "op": "gte",
//	      "target": {"value":"8","type":"str"},
//	      "coerce": true }
//	  ],
//	  "selectMode": "keep",
//	  "selects": [ { "column": {"value":"Status,Amount","type":"str"} } ],
//	  "output": { "scope": "msg", "path": "payload", "structure": "hier", "summary": true }
//	}
package config

// Value kinds for dynamic configuration fields. A Value pairs a raw string
// with the kind that says how to resolve it at run time.
const (
	KindString = "str"    // literal string
	KindNumber = "num"    // literal number
	KindBool   = "bool"   // literal boolean
	KindMsg    = "msg"    // dotted path into the batch message
	KindFlow   = "flow"   // dotted path into the shared flow scope
	KindGlobal = "global" // dotted path into the shared global scope
	KindEnv    = "env"    // environment variable name
	KindExpr   = "expr"   // expression evaluated against {msg,row,sheet}
	KindRegex  = "re"     // regular expression (sheet scopes only)
)

// Comparator names accepted by Rule.Op and CondRename.Op.
const (
	OpEq        = "eq"
	OpNeq       = "neq"
	OpLt        = "lt"
	OpLte       = "lte"
	OpGt        = "gt"
	OpGte       = "gte"
	OpContains  = "contains"
	OpNContains = "ncontains"
	OpRegex     = "regex"
	OpEmpty     = "empty"
	OpNEmpty    = "nempty"
	OpExpr      = "expr" // boolean expression; the rule's column is ignored
)

// Select modes.
const (
	SelectNone = "none"
	SelectKeep = "keep"
	SelectDrop = "drop"
)

// Output structures.
const (
	StructureHier = "hier"
	StructureFlat = "flat"
)

// Value is a dynamically typed configuration field: a raw string plus the
// kind that selects how it is resolved (literal, context path, environment
// variable, or expression). Expression kinds may resolve to a list.
type Value struct {
	// V is the raw configured text: the literal itself, a dotted path, an
	// environment variable name, or expression source.
	V string `json:"value"`

	// Kind is one of the Kind* constants. Empty means "unset"; an unset
	// scope matches every sheet, an unset rule target resolves to nil.
	Kind string `json:"type"`
}

// IsZero reports whether the value was left unset in the document.
func (v Value) IsZero() bool { return v.V == "" && v.Kind == "" }

// Rule is one row-level filter predicate. Rules combine under
// Pipeline.Logic; an empty rule list passes every row.
type Rule struct {
	// Scope restricts the rule to sheets it matches (str, re or expr kind).
	// An unset scope applies the rule to all sheets.
	Scope Value `json:"scope"`

	// Column names the column(s) the rule reads. str is a single literal
	// name; expr may resolve to one name or a list of names. Ignored when
	// Op is "expr".
	Column Value `json:"column"`

	// Op is the comparator, one of the Op* constants.
	Op string `json:"op"`

	// Target is the right-hand side of the comparison.
	Target Value `json:"target"`

	// CaseSensitive controls string equality/contains comparisons.
	CaseSensitive bool `json:"caseSensitive"`

	// Coerce enables numeric coercion for eq/neq. Ordering comparators
	// always coerce regardless of this flag.
	Coerce bool `json:"coerce"`
}

// Select nominates column(s) for the keep/drop projection. The column
// reference has the same dynamic shape as a rule column.
type Select struct {
	Scope  Value `json:"scope"`
	Column Value `json:"column"`
}

// Rename maps column name(s) From to name(s) To. Either side may resolve to
// a list; pairs map index-wise with the shorter side clamped to its last
// element.
type Rename struct {
	Scope Value `json:"scope"`
	From  Value `json:"from"`
	To    Value `json:"to"`
}

// CondRename is a rename list gated by a single message-level condition,
// evaluated once per batch. The comparator set excludes ordering and
// expression variants.
type CondRename struct {
	Enabled       bool     `json:"enabled"`
	Left          Value    `json:"left"`
	Op            string   `json:"op"`
	Right         Value    `json:"right"`
	CaseSensitive bool     `json:"caseSensitive"`
	Coerce        bool     `json:"coerce"`
	Renames       []Rename `json:"renames"`
}

// Derive computes one additional column per row via an expression bound to
// {msg, row, sheet}. A failing expression leaves the row unchanged for that
// column.
type Derive struct {
	// Column is the literal name of the new column.
	Column string `json:"column"`

	// Expr is the expression source text.
	Expr string `json:"expr"`
}

// Output selects where and in which shape the filtered data lands.
type Output struct {
	// Scope is "msg", "flow" or "global".
	Scope string `json:"scope"`

	// Path is the dotted path within the scope, e.g. "payload".
	Path string `json:"path"`

	// Structure is "hier" (file → sheet → rows) or "flat" (one row list
	// with _file/_sheet injected).
	Structure string `json:"structure"`

	// Summary includes run statistics alongside the data.
	Summary bool `json:"summary"`

	// Rules echoes the active filter logic and rule count.
	Rules bool `json:"rules"`
}

// Pipeline is the full declarative configuration evaluated against each
// incoming batch. The zero value is not directly usable; pass it through
// ApplyDefaults (Load and the admin API do this for you).
type Pipeline struct {
	// Job names the pipeline for metrics labeling and run history.
	Job string `json:"job"`

	// IncludeSheets / ExcludeSheets are regular expression patterns applied
	// to sheet names before any other processing. Empty include list means
	// all sheets. Invalid patterns never match.
	IncludeSheets []string `json:"includeSheets"`
	ExcludeSheets []string `json:"excludeSheets"`

	// Logic combines Rules: "and" (default) or "or".
	Logic string `json:"logic"`

	Rules []Rule `json:"rules"`

	// SelectMode is "none", "keep" or "drop"; Selects build the column set
	// it applies to.
	SelectMode string   `json:"selectMode"`
	Selects    []Select `json:"selects"`

	Renames    []Rename   `json:"renames"`
	CondRename CondRename `json:"condRename"`
	Derives    []Derive   `json:"derives"`

	Output Output `json:"output"`
}

// ApplyDefaults fills every unset optional field with its documented
// default. It is idempotent and never fails: tolerating partial or
// malformed documents by defaulting is part of the persistence contract.
func (p *Pipeline) ApplyDefaults() {
	if p.Job == "" {
		p.Job = "sheetpipe"
	}
	if p.Logic != "or" {
		p.Logic = "and"
	}
	switch p.SelectMode {
	case SelectKeep, SelectDrop:
	default:
		p.SelectMode = SelectNone
	}
	if p.Output.Scope == "" {
		p.Output.Scope = "msg"
	}
	if p.Output.Path == "" {
		p.Output.Path = "payload"
	}
	if p.Output.Structure != StructureFlat {
		p.Output.Structure = StructureHier
	}
}

// Default returns a fully-defaulted empty pipeline, used by the template
// endpoint and as the fallback when no document exists yet.
func Default() Pipeline {
	var p Pipeline
	p.ApplyDefaults()
	return p
}
