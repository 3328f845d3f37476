package tmplschema

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestExamplesFSContainsTemplates(t *testing.T) {
	for _, name := range []string{"templates/hello.mst", "templates/service.yml", "schemas/types.json", "data/banner.data"} {
		if _, err := fs.ReadFile(ExamplesFS(), name); err != nil {
			t.Fatalf("expected %s to be readable: %v", name, err)
		}
	}
}

func TestLoadFile_Mustache(t *testing.T) {
	ctx := context.Background()
	tmpl, err := LoadFile(ctx, ExamplesFS(), "templates/hello.mst", NewFSProviders(ExamplesFS(), "schemas", "data")...)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tmpl.Description != "Greets a user and names the port it listens on." {
		t.Fatalf("unexpected description %q", tmpl.Description)
	}
	port := tmpl.ParametersSchema().Property("port")
	if port == nil || port.Type != "integer" {
		t.Fatalf("expected integer port from the type library, got %+v", port)
	}

	out, err := tmpl.Render(map[string]any{"name": "web", "port": 8080})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hello web, listening on 8080.\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	ctx := context.Background()
	tmpl, err := LoadFile(ctx, ExamplesFS(), "templates/service.yml", NewFSProviders(ExamplesFS(), "schemas", "data")...)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tmpl.Title != "Service config" {
		t.Fatalf("unexpected title %q", tmpl.Title)
	}

	out, err := tmpl.Render(map[string]any{"port": 8443, "use_tls": true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", out, err)
	}
	want := map[string]any{"name": "web", "port": float64(8443), "banner": "welcome", "tls": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	_, err = tmpl.Render(map[string]any{"port": 70000, "use_tls": false})
	var invalid *ParametersInvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ParametersInvalidError, got %v", err)
	}
}

func TestLoadFile_SavedJSON(t *testing.T) {
	ctx := context.Background()
	tmpl, err := LoadMustache(ctx, "{{greeting}} {{name}}")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	raw, err := json.Marshal(tmpl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored, err := LoadFile(ctx, fstest.MapFS{"saved.json": {Data: raw}}, "saved.json")
	if err != nil {
		t.Fatalf("load saved: %v", err)
	}
	out, err := restored.Render(map[string]any{"greeting": "hi", "name": "there"})
	if err != nil || out != "hi there" {
		t.Fatalf("unexpected render %q, %v", out, err)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	files := fstest.MapFS{"notes.txt": {Data: []byte("{{x}}")}}
	if _, err := LoadFile(context.Background(), files, "notes.txt"); err == nil || !strings.Contains(err.Error(), "unsupported template extension") {
		t.Fatalf("expected extension error, got %v", err)
	}
	if _, err := LoadFile(context.Background(), files, "missing.mst"); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestValidate(t *testing.T) {
	if !IsValid("{{name}}") {
		t.Fatalf("expected plain mustache to be valid")
	}
	if err := Validate("{{#open}}"); err == nil {
		t.Fatalf("expected unclosed section to fail")
	}
}
