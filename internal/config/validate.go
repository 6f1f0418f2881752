// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in the CLI, the admin API,
// or tests.
package config

import (
	"fmt"
	"regexp"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "rules[1].op"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the slice is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var validOps = map[string]struct{}{
	OpEq: {}, OpNeq: {}, OpLt: {}, OpLte: {}, OpGt: {}, OpGte: {},
	OpContains: {}, OpNContains: {}, OpRegex: {}, OpEmpty: {}, OpNEmpty: {},
	OpExpr: {},
}

// condOps is the comparator subset allowed for the conditional-rename gate:
// no ordering variants and no boolean expressions.
var condOps = map[string]struct{}{
	OpEq: {}, OpNeq: {}, OpContains: {}, OpNContains: {},
	OpRegex: {}, OpEmpty: {}, OpNEmpty: {},
}

var validKinds = map[string]struct{}{
	"": {}, KindString: {}, KindNumber: {}, KindBool: {}, KindMsg: {},
	KindFlow: {}, KindGlobal: {}, KindEnv: {}, KindExpr: {}, KindRegex: {},
}

// Validate performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Run ApplyDefaults first if the document
// may be partial; Validate flags unset required fields as errors.
func Validate(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{SeverityError, "job",
			"job must not be empty; it is used for metrics labeling and run history"})
	}
	if p.Logic != "and" && p.Logic != "or" {
		issues = append(issues, Issue{SeverityError, "logic",
			fmt.Sprintf("logic must be \"and\" or \"or\", got %q", p.Logic)})
	}

	issues = append(issues, validatePatterns("includeSheets", p.IncludeSheets)...)
	issues = append(issues, validatePatterns("excludeSheets", p.ExcludeSheets)...)

	for i, r := range p.Rules {
		at := fmt.Sprintf("rules[%d]", i)
		if _, ok := validOps[r.Op]; !ok {
			issues = append(issues, Issue{SeverityError, at + ".op",
				fmt.Sprintf("unknown comparator %q", r.Op)})
		}
		issues = append(issues, validateValue(at+".scope", r.Scope, true)...)
		issues = append(issues, validateValue(at+".column", r.Column, false)...)
		issues = append(issues, validateValue(at+".target", r.Target, false)...)
		if r.Op != OpExpr && r.Op != OpEmpty && r.Op != OpNEmpty && r.Column.IsZero() {
			issues = append(issues, Issue{SeverityWarning, at + ".column",
				"rule has no column reference; it will never match"})
		}
		if r.Op == OpRegex && r.Target.Kind == KindString {
			if _, err := regexp.Compile(r.Target.V); err != nil {
				issues = append(issues, Issue{SeverityWarning, at + ".target",
					fmt.Sprintf("pattern does not compile and will never match: %v", err)})
			}
		}
	}

	switch p.SelectMode {
	case SelectNone, SelectKeep, SelectDrop:
	default:
		issues = append(issues, Issue{SeverityError, "selectMode",
			fmt.Sprintf("selectMode must be none, keep or drop, got %q", p.SelectMode)})
	}
	for i, s := range p.Selects {
		at := fmt.Sprintf("selects[%d]", i)
		issues = append(issues, validateValue(at+".scope", s.Scope, true)...)
		issues = append(issues, validateValue(at+".column", s.Column, false)...)
	}

	for i, r := range p.Renames {
		issues = append(issues, validateRename(fmt.Sprintf("renames[%d]", i), r)...)
	}

	if p.CondRename.Enabled {
		if _, ok := condOps[p.CondRename.Op]; !ok {
			issues = append(issues, Issue{SeverityError, "condRename.op",
				fmt.Sprintf("comparator %q is not allowed for the batch condition", p.CondRename.Op)})
		}
		for i, r := range p.CondRename.Renames {
			issues = append(issues, validateRename(fmt.Sprintf("condRename.renames[%d]", i), r)...)
		}
	}

	for i, d := range p.Derives {
		at := fmt.Sprintf("derives[%d]", i)
		if strings.TrimSpace(d.Column) == "" {
			issues = append(issues, Issue{SeverityError, at + ".column",
				"derived column name must not be empty"})
		}
		if strings.TrimSpace(d.Expr) == "" {
			issues = append(issues, Issue{SeverityError, at + ".expr",
				"derive expression must not be empty"})
		}
	}

	switch p.Output.Scope {
	case "msg", "flow", "global":
	default:
		issues = append(issues, Issue{SeverityError, "output.scope",
			fmt.Sprintf("output scope must be msg, flow or global, got %q", p.Output.Scope)})
	}
	if strings.TrimSpace(p.Output.Path) == "" {
		issues = append(issues, Issue{SeverityError, "output.path",
			"output path must not be empty"})
	}
	if p.Output.Structure != StructureHier && p.Output.Structure != StructureFlat {
		issues = append(issues, Issue{SeverityError, "output.structure",
			fmt.Sprintf("output structure must be hier or flat, got %q", p.Output.Structure)})
	}

	return issues
}

func validateRename(at string, r Rename) []Issue {
	var issues []Issue
	issues = append(issues, validateValue(at+".scope", r.Scope, true)...)
	issues = append(issues, validateValue(at+".from", r.From, false)...)
	issues = append(issues, validateValue(at+".to", r.To, false)...)
	return issues
}

// validateValue checks the kind tag of a dynamic value. scoped values may
// also carry the regex kind.
func validateValue(at string, v Value, scoped bool) []Issue {
	var issues []Issue
	if _, ok := validKinds[v.Kind]; !ok {
		issues = append(issues, Issue{SeverityError, at + ".type",
			fmt.Sprintf("unknown value kind %q", v.Kind)})
		return issues
	}
	if v.Kind == KindRegex {
		if !scoped {
			issues = append(issues, Issue{SeverityError, at + ".type",
				"the re kind is only valid for sheet scopes"})
		} else if _, err := regexp.Compile(v.V); err != nil {
			issues = append(issues, Issue{SeverityWarning, at,
				fmt.Sprintf("pattern does not compile and will never match: %v", err)})
		}
	}
	return issues
}

func validatePatterns(at string, pats []string) []Issue {
	var issues []Issue
	for i, pat := range pats {
		if _, err := regexp.Compile(pat); err != nil {
			issues = append(issues, Issue{SeverityWarning,
				fmt.Sprintf("%s[%d]", at, i),
				fmt.Sprintf("pattern does not compile and will never match: %v", err)})
		}
	}
	return issues
}
