package mst

import "testing"

func TestStripAnnotations(t *testing.T) {
	cases := map[string]string{
		"{{foo::string}}":                    "{{foo}}",
		"{{port:types:port}} {{bar}}":        "{{port}} {{bar}}",
		"{{#list::array}}{{.}}{{/list}}":     "{{#list}}{{.}}{{/list}}",
		"{{^flag::boolean}}off{{/flag}}":     "{{^flag}}off{{/flag}}",
		"plain {{name}} text":                "plain {{name}} text",
		"{{a::integer}}-{{b:lib:thing}}-end": "{{a}}-{{b}}-end",
	}
	for in, want := range cases {
		if got := StripAnnotations(in); got != want {
			t.Fatalf("StripAnnotations(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExpandPartials_Inline(t *testing.T) {
	got, err := ExpandPartials("a={{> part}};", map[string]string{"part": "{{x}}"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != "a={{x}};" {
		t.Fatalf("unexpected expansion %q", got)
	}
}

func TestExpandPartials_StandaloneIndent(t *testing.T) {
	src := "{{#items}}\n  {{> row}}\n{{/items}}\n"
	got, err := ExpandPartials(src, map[string]string{"row": "numb={{.}}\n"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := "{{#items}}\n  numb={{.}}\n{{/items}}\n"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestExpandPartials_NestedAndUnknown(t *testing.T) {
	partials := map[string]string{
		"outer": "[{{> inner}}]",
		"inner": "in",
	}
	got, err := ExpandPartials("{{> outer}}{{> missing}}!", partials)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != "[in]!" {
		t.Fatalf("unexpected expansion %q", got)
	}
}

func TestExpandPartials_Recursive(t *testing.T) {
	_, err := ExpandPartials("{{> loop}}", map[string]string{"loop": "x{{> loop}}"})
	if err == nil {
		t.Fatalf("expected recursion error")
	}
}
