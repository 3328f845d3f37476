package structured

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeJSON_DeepMerge(t *testing.T) {
	acc := []byte(`{"a": {"x": 1, "list": [1]}, "b": "keep", "html": "<b>&</b>"}`)
	curr := []byte(`{"a": {"y": 2.5, "list": [2]}, "b": "replaced", "c": null}`)

	out, err := MergeJSON(acc, curr)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	want := `{
  "a": {
    "x": 1,
    "list": [
      1,
      2
    ],
    "y": 2.5
  },
  "b": "replaced",
  "html": "<b>&</b>",
  "c": null
}`
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("merged json mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeYAML_DeepMerge(t *testing.T) {
	acc := []byte("foo:\n  a: 1\nlist:\n  - one\n")
	curr := []byte("foo:\n  b: two\nlist:\n  - two\n")

	out, err := MergeYAML(acc, curr)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	want := "foo:\n  a: 1\n  b: two\nlist:\n  - one\n  - two\n"
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("merged yaml mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_ScalarTakesSource(t *testing.T) {
	a, _ := Parse([]byte(`{"k": [1, 2]}`))
	b, _ := Parse([]byte(`{"k": "flat"}`))

	out, err := EncodeJSON(Merge(a, b), 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(out) != `{"k":"flat"}` {
		t.Fatalf("unexpected merge result %s", out)
	}
}

func TestParse_FallsBackToYAML(t *testing.T) {
	n, err := Parse([]byte("{tabbed: true}"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := EncodeJSON(n, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(out) != `{"tabbed":true}` {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestReformatJSON_KeepsOrderAndNumbers(t *testing.T) {
	out, err := ReformatJSON([]byte(`{"z": 10, "a": 1.50, "big": 12345678901234}`))
	if err != nil {
		t.Fatalf("reformat: %v", err)
	}
	want := "{\n  \"z\": 10,\n  \"a\": 1.5,\n  \"big\": 12345678901234\n}"
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("reformat mismatch (-want +got):\n%s", diff)
	}
}

func TestYAMLToJSON(t *testing.T) {
	out, err := YAMLToJSON([]byte("title: Demo\nparameters:\n  port: 443\n  enabled: true\ntemplate: |\n  {{port}}\n"))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := `{"title":"Demo","parameters":{"port":443,"enabled":true},"template":"{{port}}\n"}`
	if string(out) != want {
		t.Fatalf("unexpected json\nwant %s\ngot  %s", want, out)
	}
}

func TestDecode_Normalizes(t *testing.T) {
	n, err := ParseYAML([]byte("a: 1\nb: [x, 2]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v, err := Decode(n)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{"a": float64(1), "b": []any{"x", float64(2)}}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestParseYAML_Empty(t *testing.T) {
	n, err := ParseYAML(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, _ := EncodeJSON(n, 0)
	if string(out) != "null" {
		t.Fatalf("expected null, got %s", out)
	}
}
