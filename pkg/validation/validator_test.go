package validation_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-tmplschema/pkg/schema"
	"github.com/goliatone/go-tmplschema/pkg/validation"
)

func compile(t *testing.T, raw string) *validation.Validator {
	t.Helper()
	s, err := schema.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	v, err := validation.Compile(context.Background(), s)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	return v
}

func messages(result validation.Result) []string {
	out := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		out = append(out, issue.Message)
	}
	return out
}

func TestValidate_BadTypeFollowsPropertyOrder(t *testing.T) {
	v := compile(t, `{
		"type": "object",
		"properties": {
			"fooArray": {"type": "array", "items": {"type": "string"}},
			"fooEnum": {"type": "string", "enum": ["foo", "bar"]},
			"foo": {"type": "string"}
		},
		"required": ["fooArray", "fooEnum", "foo"]
	}`)

	result := v.Validate(map[string]any{
		"foo":      1,
		"fooArray": []any{1, 2},
		"fooEnum":  "baz",
	})
	if result.Valid {
		t.Fatalf("expected validation to fail")
	}
	want := []string{
		"parameter fooArray[0] should be of type string",
		"parameter fooArray[1] should be of type string",
		"parameter fooEnum should be equal to one of the allowed values: foo, bar",
		"parameter foo should be of type string",
	}
	if diff := cmp.Diff(want, messages(result)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if result.Issues[0].Field != "fooArray[0]" || result.Issues[0].Path != "/fooArray/0" {
		t.Fatalf("unexpected field mapping %+v", result.Issues[0])
	}
}

func TestValidate_Bounds(t *testing.T) {
	v := compile(t, `{
		"type": "object",
		"properties": {
			"minval": {"type": "number", "minimum": 2},
			"maxval": {"type": "number", "maximum": 1},
			"minlength": {"type": "string", "minLength": 10},
			"maxlength": {"type": "string", "maxLength": 1},
			"minitems": {"type": "array", "minItems": 1},
			"maxitems": {"type": "array", "maxItems": 1}
		},
		"required": []
	}`)

	result := v.Validate(map[string]any{
		"minval":    1,
		"maxval":    10,
		"minlength": "too short",
		"maxlength": "too long",
		"minitems":  []any{},
		"maxitems":  []any{1, 2},
	})
	want := []string{
		"parameter minval should be >= 2",
		"parameter maxval should be <= 1",
		"parameter minlength should NOT be shorter than 10 characters",
		"parameter maxlength should NOT be longer than 1 characters",
		"parameter minitems should NOT have fewer than 1 items",
		"parameter maxitems should NOT have more than 1 items",
	}
	if diff := cmp.Diff(want, messages(result)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_ExclusiveBoundReportedOnce(t *testing.T) {
	v := compile(t, `{
		"type": "object",
		"properties": {"port": {"type": "integer", "minimum": 1, "exclusiveMinimum": true}}
	}`)
	result := v.Validate(map[string]any{"port": 0})
	if diff := cmp.Diff([]string{"parameter port should be > 1"}, messages(result)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	v := compile(t, `{"type":"object","properties":{"foo":{"type":"string"}},"required":["foo"]}`)

	result := v.Validate(nil)
	if diff := cmp.Diff([]string{"should have required property 'foo'"}, messages(result)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if result.Issues[0].Keyword != "required" {
		t.Fatalf("expected required keyword, got %q", result.Issues[0].Keyword)
	}
}

func TestValidate_Pattern(t *testing.T) {
	v := compile(t, `{"type":"object","properties":{"foo":{"type":"string","pattern":"bar"}},"required":["foo"]}`)

	result := v.Validate(map[string]any{"foo": "foo"})
	if len(result.Issues) != 1 {
		t.Fatalf("expected one issue, got %+v", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Message != "parameter foo should match pattern" {
		t.Fatalf("unexpected message %q", issue.Message)
	}
	if issue.Details != "failed to match pattern: bar" {
		t.Fatalf("unexpected details %q", issue.Details)
	}
}

func TestValidate_Dependencies(t *testing.T) {
	v := compile(t, `{
		"type": "object",
		"properties": {
			"section": {"type": "boolean"},
			"value": {"type": "string"}
		},
		"dependencies": {"value": ["section"]}
	}`)

	if result := v.Validate(map[string]any{"section": true, "value": "x"}); !result.Valid {
		t.Fatalf("expected valid, got %+v", result.Issues)
	}
	result := v.Validate(map[string]any{"value": "x"})
	want := []string{"should have property section when property value is present"}
	if diff := cmp.Diff(want, messages(result)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_AllOfReportsEveryBranch(t *testing.T) {
	v := compile(t, `{
		"type": "object",
		"properties": {"own": {"type": "string"}},
		"required": ["own"],
		"allOf": [
			{"type": "object", "properties": {"child": {"type": "integer"}}, "required": ["child"]}
		]
	}`)

	result := v.Validate(map[string]any{"own": 5, "child": "x"})
	want := []string{
		"parameter own should be of type string",
		"parameter child should be of type integer",
	}
	if diff := cmp.Diff(want, messages(result)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_XOf(t *testing.T) {
	v := compile(t, `{
		"type": "object",
		"properties": {},
		"anyOf": [
			{"type": "object", "properties": {"a": {"type": "string"}}, "required": ["a"]},
			{"type": "object", "properties": {"b": {"type": "string"}}, "required": ["b"]}
		],
		"oneOf": [
			{"type": "object", "properties": {"c": {"type": "string"}}, "required": ["c"]},
			{"type": "object", "properties": {"d": {"type": "string"}}, "required": ["d"]}
		]
	}`)

	if result := v.Validate(map[string]any{"a": "x", "c": "y"}); !result.Valid {
		t.Fatalf("expected valid, got %+v", result.Issues)
	}

	result := v.Validate(map[string]any{"c": "y", "d": "z"})
	want := []string{
		"should match some schema in anyOf",
		"should match exactly one schema in oneOf",
	}
	if diff := cmp.Diff(want, messages(result)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_RejectsBadPattern(t *testing.T) {
	s, err := schema.Parse([]byte(`{"type":"object","properties":{"foo":{"type":"string","pattern":"(unclosed"}}}`))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	if _, err := validation.Compile(context.Background(), s); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestValidate_Keywords(t *testing.T) {
	cases := []struct {
		name   string
		schema string
		value  map[string]any
		want   []string
	}{
		{
			name:   "multipleOf",
			schema: `{"type":"object","properties":{"port":{"type":"integer","multipleOf":10}}}`,
			value:  map[string]any{"port": 15},
			want:   []string{"parameter port should be multiple of 10"},
		},
		{
			name:   "uniqueItems",
			schema: `{"type":"object","properties":{"tags":{"type":"array","items":{"type":"string"},"uniqueItems":true}}}`,
			value:  map[string]any{"tags": []any{"a", "a"}},
			want:   []string{"parameter tags should NOT have duplicate items"},
		},
		{
			name:   "additionalProperties false",
			schema: `{"type":"object","properties":{"name":{"type":"string"}},"additionalProperties":false}`,
			value:  map[string]any{"name": "web", "zzz": 1},
			want:   []string{"should NOT have additional properties"},
		},
		{
			name:   "additionalProperties schema",
			schema: `{"type":"object","properties":{"labels":{"type":"object","additionalProperties":{"type":"string"}}}}`,
			value:  map[string]any{"labels": map[string]any{"team": 5}},
			want:   []string{"parameter labels.team should be of type string"},
		},
		{
			name:   "not",
			schema: `{"type":"object","properties":{"user":{"type":"string","not":{"enum":["root"]}}}}`,
			value:  map[string]any{"user": "root"},
			want:   []string{"parameter user should NOT be valid"},
		},
		{
			name:   "minProperties",
			schema: `{"type":"object","properties":{"labels":{"type":"object","minProperties":1}}}`,
			value:  map[string]any{"labels": map[string]any{}},
			want:   []string{"parameter labels should NOT have fewer than 1 properties"},
		},
		{
			name:   "maxProperties",
			schema: `{"type":"object","properties":{"labels":{"type":"object","maxProperties":1}}}`,
			value:  map[string]any{"labels": map[string]any{"a": "x", "b": "y"}},
			want:   []string{"parameter labels should NOT have more than 1 properties"},
		},
		{
			name:   "type list",
			schema: `{"type":"object","properties":{"name":{"type":["string","null"]}}}`,
			value:  map[string]any{"name": 5},
			want:   []string{"parameter name should be of type string,null"},
		},
		{
			name:   "numeric exclusiveMinimum",
			schema: `{"type":"object","properties":{"port":{"type":"integer","exclusiveMinimum":0}}}`,
			value:  map[string]any{"port": 0},
			want:   []string{"parameter port should be > 0"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := compile(t, tc.schema)
			result := v.Validate(tc.value)
			if diff := cmp.Diff(tc.want, messages(result)); diff != "" {
				t.Fatalf("messages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_KeywordsAcceptValidValues(t *testing.T) {
	v := compile(t, `{
		"type": "object",
		"properties": {
			"port": {"type": "integer", "multipleOf": 10},
			"tags": {"type": "array", "items": {"type": "string"}, "uniqueItems": true},
			"note": {"type": ["string", "null"]},
			"user": {"type": "string", "not": {"enum": ["root"]}}
		},
		"additionalProperties": false
	}`)

	result := v.Validate(map[string]any{"port": 20, "tags": []any{"a", "b"}, "note": nil, "user": "app"})
	if !result.Valid {
		t.Fatalf("expected valid, got %+v", result.Issues)
	}
}

func TestValidate_AdditionalPropertiesDetails(t *testing.T) {
	v := compile(t, `{"type":"object","properties":{},"additionalProperties":false}`)

	result := v.Validate(map[string]any{"zzz": 1})
	if len(result.Issues) != 1 {
		t.Fatalf("expected one issue, got %+v", result.Issues)
	}
	if issue := result.Issues[0]; issue.Keyword != "additionalProperties" || issue.Details != `property "zzz" is unsupported` {
		t.Fatalf("unexpected issue %+v", issue)
	}
}

func TestValidate_LocalRef(t *testing.T) {
	v := compile(t, `{
		"type": "object",
		"properties": {"ref": {"type": "string", "$ref": "#/definitions/data"}},
		"definitions": {"data": {"type": "string", "pattern": "^a"}}
	}`)

	if result := v.Validate(map[string]any{"ref": "abc"}); !result.Valid {
		t.Fatalf("expected valid, got %+v", result.Issues)
	}
	result := v.Validate(map[string]any{"ref": "bbb"})
	if diff := cmp.Diff([]string{"parameter ref should match pattern"}, messages(result)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_RecursiveRef(t *testing.T) {
	v := compile(t, `{
		"type": "object",
		"properties": {"tree": {"$ref": "#/definitions/node"}},
		"definitions": {
			"node": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"children": {"type": "array", "items": {"$ref": "#/definitions/node"}}
				}
			}
		}
	}`)

	result := v.Validate(map[string]any{
		"tree": map[string]any{
			"name":     "a",
			"children": []any{map[string]any{"name": 5}},
		},
	})
	want := []string{"parameter tree.children[0].name should be of type string"}
	if diff := cmp.Diff(want, messages(result)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_RejectsUnhandledSchemas(t *testing.T) {
	cases := map[string]string{
		"unsupported keyword": `{"type":"object","properties":{"x":{"type":"object","patternProperties":{"^a":{}}}}}`,
		"tuple items":         `{"type":"object","properties":{"x":{"type":"array","items":[{"type":"string"}]}}}`,
		"missing definition":  `{"type":"object","properties":{"x":{"$ref":"#/definitions/nope"}}}`,
		"remote ref":          `{"type":"object","properties":{"x":{"$ref":"http://example.com/foo.json#/definitions/foo"}}}`,
		"circular alias":      `{"type":"object","properties":{"x":{"$ref":"#/definitions/a"}},"definitions":{"a":{"$ref":"#/definitions/b"},"b":{"$ref":"#/definitions/a"}}}`,
		"bad multipleOf":      `{"type":"object","properties":{"x":{"type":"number","multipleOf":0}}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := schema.Parse([]byte(raw))
			if err != nil {
				t.Fatalf("parse schema: %v", err)
			}
			if _, err := validation.Compile(context.Background(), s); err == nil {
				t.Fatalf("expected compile error")
			}
		})
	}
}
