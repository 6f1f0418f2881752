package config

import (
	"encoding/json"
	"reflect"
	"testing"
)

/*
TestApplyDefaults fills every optional field of an empty pipeline with its
documented default and is idempotent.
*/
func TestApplyDefaults(t *testing.T) {
	var p Pipeline
	p.ApplyDefaults()

	if p.Job != "sheetpipe" {
		t.Fatalf("job = %q; want sheetpipe", p.Job)
	}
	if p.Logic != "and" {
		t.Fatalf("logic = %q; want and", p.Logic)
	}
	if p.SelectMode != SelectNone {
		t.Fatalf("selectMode = %q; want none", p.SelectMode)
	}
	if p.Output.Scope != "msg" || p.Output.Path != "payload" || p.Output.Structure != StructureHier {
		t.Fatalf("output = %+v; want msg/payload/hier", p.Output)
	}

	before := p
	p.ApplyDefaults()
	if !reflect.DeepEqual(p, before) {
		t.Fatalf("ApplyDefaults not idempotent: %+v vs %+v", p, before)
	}
}

/*
TestApplyDefaults_KeepsExplicit: explicitly configured values survive the
defaulting pass; unrecognized values fall back rather than erroring.
*/
func TestApplyDefaults_KeepsExplicit(t *testing.T) {
	p := Pipeline{Job: "orders", Logic: "or", SelectMode: SelectDrop}
	p.Output.Structure = StructureFlat
	p.ApplyDefaults()

	if p.Job != "orders" || p.Logic != "or" || p.SelectMode != SelectDrop {
		t.Fatalf("explicit fields changed: %+v", p)
	}
	if p.Output.Structure != StructureFlat {
		t.Fatalf("structure = %q; want flat", p.Output.Structure)
	}

	p.Logic = "xor"
	p.SelectMode = "pick"
	p.Output.Structure = "tree"
	p.ApplyDefaults()
	if p.Logic != "and" || p.SelectMode != SelectNone || p.Output.Structure != StructureHier {
		t.Fatalf("unrecognized values not defaulted: %+v", p)
	}
}

/*
TestDecodePartialDocument: a trimmed document decodes cleanly and comes out
fully usable after defaulting. This is the persistence contract the admin
API relies on.
*/
func TestDecodePartialDocument(t *testing.T) {
	doc := `{
	  "rules": [
	    { "column": {"value":"Amount","type":"str"},
	      "op": "gte",
	      "target": {"value":"8","type":"str"},
	      "coerce": true }
	  ],
	  "output": { "summary": true }
	}`

	var p Pipeline
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	p.ApplyDefaults()

	if len(p.Rules) != 1 || p.Rules[0].Op != OpGte || !p.Rules[0].Coerce {
		t.Fatalf("rules = %+v", p.Rules)
	}
	if p.Rules[0].Column.V != "Amount" || p.Rules[0].Column.Kind != KindString {
		t.Fatalf("column = %+v", p.Rules[0].Column)
	}
	if !p.Output.Summary || p.Output.Path != "payload" {
		t.Fatalf("output = %+v", p.Output)
	}
	if issues := Validate(p); HasErrors(issues) {
		t.Fatalf("valid document flagged: %v", issues)
	}
}

func TestValueIsZero(t *testing.T) {
	if !(Value{}).IsZero() {
		t.Fatal("empty value not zero")
	}
	if (Value{V: "x"}).IsZero() || (Value{Kind: KindString}).IsZero() {
		t.Fatal("non-empty value reported zero")
	}
}
