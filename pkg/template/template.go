// Package template compiles annotated Mustache templates into a parameters
// JSON-Schema and renders them against validated parameters.
//
// A template is either plain annotated text (LoadMST) or a YAML document
// carrying the text under `template` together with `definitions`,
// `parameters` and `allOf`/`anyOf`/`oneOf` child templates (LoadYAML).
// Compilation infers the schema once; Render merges defaults, evaluates
// math expressions, validates, and substitutes.
package template

import (
	"github.com/goliatone/go-tmplschema/pkg/mst"
	"github.com/goliatone/go-tmplschema/pkg/schema"
	"github.com/goliatone/go-tmplschema/pkg/validation"
)

// Content types with dedicated merge and post-process strategies.
const (
	ContentTypePlain   = "text/plain"
	ContentTypeJSON    = "application/json"
	ContentTypeYAML    = "application/yaml"
	ContentTypeXYAML   = "application/x-yaml"
	ContentTypeTextYML = "text/x-yaml"
)

// Template is a compiled template. It is not modified after loading and is
// safe for concurrent Render calls.
type Template struct {
	Title       string
	Description string

	// Definitions are the author definitions in declaration order.
	Definitions *schema.Properties
	// TypeDefinitions holds every definition after resolution: partials as
	// their inferred schema, external libraries merged in.
	TypeDefinitions *schema.Properties

	TemplateText      string
	DefaultParameters map[string]any
	ContentType       string
	Source            schema.Source

	AllOf []*Template
	AnyOf []*Template
	OneOf []*Template

	// HTTPForward holds the `httpForward` directive, `{url: ...}`.
	HTTPForward map[string]any

	parameters *schema.Schema
	defs       *schema.DefinitionSet
	validator  *validation.Validator
	cfg        *config
}

func newTemplate(cfg *config) *Template {
	return &Template{
		Definitions:       schema.NewProperties(),
		TypeDefinitions:   schema.NewProperties(),
		DefaultParameters: map[string]any{},
		ContentType:       ContentTypePlain,
		Source:            schema.Source{Kind: schema.SourceKindUnknown},
		cfg:               cfg,
	}
}

// children lists composed templates in the order defaults are layered.
func (t *Template) children() []*Template {
	out := make([]*Template, 0, len(t.OneOf)+len(t.AllOf)+len(t.AnyOf))
	out = append(out, t.OneOf...)
	out = append(out, t.AllOf...)
	return append(out, t.AnyOf...)
}

// Definition returns the classified author definition for name.
func (t *Template) Definition(name string) (*schema.Definition, bool) {
	return t.defs.Get(name)
}

// Partials returns the annotation-free text of every partial definition.
func (t *Template) Partials() map[string]string {
	out := map[string]string{}
	for _, def := range t.defs.All() {
		if def.Partial != "" {
			out[def.Name] = mst.StripAnnotations(def.Partial)
		}
	}
	return out
}
