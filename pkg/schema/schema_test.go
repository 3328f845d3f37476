package schema

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_PreservesOrderAndExtras(t *testing.T) {
	raw := `{
		"type": "object",
		"properties": {
			"zeta": {"type": "string", "enumFromBigip": "ltm/rule"},
			"alpha": {"type": "integer", "minimum": 0, "maximum": 65535, "default": 443}
		},
		"required": ["zeta"],
		"dependencies": {"alpha": ["zeta"]},
		"x-custom": {"nested": true}
	}`

	s, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha"}, s.PropertyNames()); diff != "" {
		t.Fatalf("property order mismatch (-want +got):\n%s", diff)
	}
	alpha := s.Property("alpha")
	if alpha.Minimum == nil || *alpha.Minimum != 0 || alpha.Default != float64(443) {
		t.Fatalf("unexpected alpha keywords: %+v", alpha)
	}
	if v, ok := s.Property("zeta").ExtraValue("enumFromBigip"); !ok || v != "ltm/rule" {
		t.Fatalf("expected extra keyword to survive, got %v", v)
	}
	deps, _ := s.Dependencies.Get("alpha")
	if diff := cmp.Diff([]string{"zeta"}, deps); diff != "" {
		t.Fatalf("dependencies mismatch (-want +got):\n%s", diff)
	}
	if _, ok := s.ExtraValue("x-custom"); !ok {
		t.Fatalf("expected x-custom in extras")
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	raw := `{"type":"object","title":"","description":"","properties":{"b":{"type":"array","items":{"type":"string"},"skip_xform":true},"a":{"type":"string","format":"hidden","mathExpression":"1 + 2"}},"required":[],"definitions":{},"x-note":"kept"}`

	s, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != raw {
		t.Fatalf("expected byte-identical output\nwant %s\ngot  %s", raw, out)
	}
}

func TestMarshal_EmptyRequiredIsEmitted(t *testing.T) {
	s := &Schema{Type: "object", Properties: NewProperties(), Required: []string{}}
	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"type":"object","properties":{},"required":[]}` {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestParse_NonSchemaShapesGoToExtra(t *testing.T) {
	s, err := Parse([]byte(`{"type":["string","null"],"items":[{"type":"string"}],"dependencies":["section"]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Type != "" || s.Items != nil || s.Dependencies != nil {
		t.Fatalf("expected typed fields to stay empty, got %+v", s)
	}
	for _, key := range []string{"type", "items", "dependencies"} {
		if _, ok := s.ExtraValue(key); !ok {
			t.Fatalf("expected %s in extras", key)
		}
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := &Schema{
		Type:    "object",
		Default: map[string]any{"k": []any{"v"}},
	}
	orig.SetProperty("p", &Schema{Type: "string", Title: String("P")})
	orig.Dependencies = NewDependencies()
	orig.Dependencies.Set("p", []string{"q"})

	cp := orig.Clone()
	*cp.Property("p").Title = "changed"
	cp.Default.(map[string]any)["k"].([]any)[0] = "changed"
	deps, _ := cp.Dependencies.Get("p")
	deps[0] = "changed"
	cp.SetProperty("extra", &Schema{Type: "string"})

	if *orig.Property("p").Title != "P" {
		t.Fatalf("title aliased")
	}
	if orig.Default.(map[string]any)["k"].([]any)[0] != "v" {
		t.Fatalf("default aliased")
	}
	if d, _ := orig.Dependencies.Get("p"); d[0] != "q" {
		t.Fatalf("dependencies aliased")
	}
	if orig.HasProperty("extra") {
		t.Fatalf("properties aliased")
	}
}

func TestOverlay_Shallow(t *testing.T) {
	dst := &Schema{Type: "integer", Minimum: floatPtr(0), Default: float64(443)}
	dst.SetExtra("x", 1.0)
	src := &Schema{Title: String("Foo"), Default: float64(500)}
	src.SetExtra("y", "two")

	dst.Overlay(src)
	if dst.Type != "integer" || *dst.Minimum != 0 {
		t.Fatalf("overlay dropped existing keywords: %+v", dst)
	}
	if *dst.Title != "Foo" || dst.Default != float64(500) {
		t.Fatalf("overlay did not apply: %+v", dst)
	}
	if _, ok := dst.ExtraValue("y"); !ok {
		t.Fatalf("expected extra y")
	}
}

func TestNormalizeValue(t *testing.T) {
	in := map[string]any{
		"i":   5,
		"u":   uint64(7),
		"arr": []any{1, "two", map[any]any{"k": 3}},
	}
	want := map[string]any{
		"i":   float64(5),
		"u":   float64(7),
		"arr": []any{float64(1), "two", map[string]any{"k": float64(3)}},
	}
	if diff := cmp.Diff(want, NormalizeValue(in)); diff != "" {
		t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestHashText(t *testing.T) {
	text := "\n            {{!\n                Just a basic template\n            }}\n            {\n                {{foo}}\n            }\n        "
	src := NewSource(SourceKindMST, text)
	if src.Hash != "6ac8bbb53fdfe637931e0dfc9e4259ef685ab5fc8e1e13b796dbf6d3145fe213" {
		t.Fatalf("unexpected hash %s", src.Hash)
	}
	if NewSource(SourceKindMST, text).Hash != src.Hash {
		t.Fatalf("expected stable hash")
	}
}

func floatPtr(f float64) *float64 { return &f }
