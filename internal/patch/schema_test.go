package patch

import (
	"strings"
	"testing"
)

func validOscValues() ModuleValues {
	return ModuleValues{
		"knobs":      []any{5.0, 0.0, 5.0, 10.0, 5.0, 0.0, 0.0},
		"rangeState": "hi",
	}
}

func TestValidateAcceptsWellFormedDocument(t *testing.T) {
	doc := EmptyDocument()
	doc.SetModule("osc", 1, validOscValues())
	doc.SetModule("noise", 2, ModuleValues{"colour": 0.5, "level": 1.0})
	doc.SetModule("output", 3, ModuleValues{"level": 7.0, "on": "on"})
	doc.Matrix.Audio = []Connection{{Src: "osc1.outA", Dst: "output3.in", Color: "grey"}}
	ok, errs := Validate(doc)
	if !ok {
		t.Fatalf("well-formed document rejected: %v", errs)
	}
}

func TestValidateMissingFieldsAreLegal(t *testing.T) {
	doc := EmptyDocument()
	doc.SetModule("osc", 4, ModuleValues{"rangeState": "lo"})
	if ok, errs := Validate(doc); !ok {
		t.Errorf("partial module rejected: %v", errs)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	doc := EmptyDocument()
	doc.FormatVersion = 99
	doc.SetModule("osc", 1, ModuleValues{
		"knobs":      []any{11.0, 0.0, 5.0}, // wrong length, out of range
		"rangeState": "mid",
		"vibrato":    1.0,
	})
	doc.SetModule("osc", 99, validOscValues())
	doc.Modules["osc"]["x"] = validOscValues()
	doc.SetModule("reverb", 1, ModuleValues{})
	doc.Matrix.Audio = []Connection{
		{Src: "osc1.outA", Dst: "output1.in", Color: "orange"},
		{Src: "osc1.outA", Dst: "output1.in", Color: "mauve"},
		{Src: "", Dst: "output1.in", Color: "white"},
	}
	ok, errs := Validate(doc)
	if ok {
		t.Fatal("broken document validated")
	}
	// One error per distinct problem, all collected in one pass.
	if len(errs) < 8 {
		t.Errorf("expected at least 8 errors, got %d: %v", len(errs), errs)
	}
	wantFragments := []string{
		"newer than supported",
		"expected 7 elements",
		`"mid" not one of hi|lo`,
		"unknown field",
		"outside 1..12",
		`unknown module kind "reverb"`,
		`instance id "x" must be a positive integer`,
		`colour "orange" is reserved`,
		`colour "mauve" unknown`,
		"source and destination must be named",
	}
	joined := make([]string, len(errs))
	for i, e := range errs {
		joined[i] = e.Error()
	}
	all := strings.Join(joined, "\n")
	for _, frag := range wantFragments {
		if !strings.Contains(all, frag) {
			t.Errorf("missing error containing %q in:\n%s", frag, all)
		}
	}
}

func TestValidateWrongTypesNeverPanic(t *testing.T) {
	doc := EmptyDocument()
	doc.SetModule("osc", 1, ModuleValues{
		"knobs":      "not an array",
		"rangeState": 3.0,
	})
	doc.SetModule("noise", 1, ModuleValues{
		"colour": []any{1.0},
		"level":  "loud",
	})
	ok, errs := Validate(doc)
	if ok {
		t.Fatal("type-confused document validated")
	}
	if len(errs) != 4 {
		t.Errorf("expected 4 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateArrayElementRange(t *testing.T) {
	doc := EmptyDocument()
	vals := validOscValues()
	knobs := vals["knobs"].([]any)
	knobs[2] = -0.5
	doc.SetModule("osc", 1, vals)
	ok, errs := Validate(doc)
	if ok {
		t.Fatal("out-of-range knob validated")
	}
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "element 2") {
		t.Errorf("errors = %v, want single element-2 range error", errs)
	}
}

func TestValidateRequiresStructuralSections(t *testing.T) {
	doc, err := Parse([]byte(`{"formatVersion": 2, "name": "bare"}`))
	if err != nil {
		t.Fatal(err)
	}
	ok, errs := Validate(doc)
	if ok {
		t.Fatal("document missing modules and matrix validated clean")
	}
	joined := make([]string, len(errs))
	for i, e := range errs {
		joined[i] = e.Error()
	}
	all := strings.Join(joined, "\n")
	for _, frag := range []string{"modules: section missing", "matrix: section missing"} {
		if !strings.Contains(all, frag) {
			t.Errorf("missing error containing %q in:\n%s", frag, all)
		}
	}

	unnamed, err := Parse([]byte(`{"modules": {}, "matrix": {"audio": [], "control": []}}`))
	if err != nil {
		t.Fatal(err)
	}
	ok, errs = Validate(unnamed)
	if ok {
		t.Fatal("document missing formatVersion and name validated clean")
	}
	joined = joined[:0]
	for _, e := range errs {
		joined = append(joined, e.Error())
	}
	all = strings.Join(joined, "\n")
	for _, frag := range []string{"formatVersion", "name: missing"} {
		if !strings.Contains(all, frag) {
			t.Errorf("missing error containing %q in:\n%s", frag, all)
		}
	}
}

func TestValidateNilDocument(t *testing.T) {
	ok, errs := Validate(nil)
	if ok || len(errs) != 1 {
		t.Errorf("nil document: ok=%v errs=%v, want single error", ok, errs)
	}
}

func TestSchemaDefaultsSatisfySchema(t *testing.T) {
	for kind, schema := range ModuleSchemas() {
		doc := EmptyDocument()
		doc.SetModule(kind, 1, schema.Defaults())
		if ok, errs := Validate(doc); !ok {
			t.Errorf("%s defaults invalid: %v", kind, errs)
		}
	}
}
