package template

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"

	"github.com/goliatone/go-tmplschema/pkg/schema"
)

type serializedTemplate struct {
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Definitions       *schema.Properties `json:"definitions"`
	TypeDefinitions   *schema.Properties `json:"typeDefinitions"`
	ParametersSchema  *schema.Schema     `json:"parametersSchema"`
	TemplateText      string             `json:"templateText"`
	DefaultParameters map[string]any     `json:"defaultParameters"`
	ContentType       string             `json:"contentType"`
	SourceType        schema.SourceKind  `json:"sourceType"`
	SourceText        string             `json:"sourceText"`
	SourceHash        string             `json:"sourceHash"`
	AllOf             []*Template        `json:"allOf"`
	AnyOf             []*Template        `json:"anyOf"`
	OneOf             []*Template        `json:"oneOf"`
	HTTPForward       map[string]any     `json:"httpForward,omitempty"`
}

type decodedTemplate struct {
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Definitions       json.RawMessage   `json:"definitions"`
	TypeDefinitions   json.RawMessage   `json:"typeDefinitions"`
	ParametersSchema  json.RawMessage   `json:"parametersSchema"`
	TemplateText      string            `json:"templateText"`
	DefaultParameters map[string]any    `json:"defaultParameters"`
	ContentType       string            `json:"contentType"`
	SourceType        schema.SourceKind `json:"sourceType"`
	SourceText        string            `json:"sourceText"`
	SourceHash        string            `json:"sourceHash"`
	AllOf             []json.RawMessage `json:"allOf"`
	AnyOf             []json.RawMessage `json:"anyOf"`
	OneOf             []json.RawMessage `json:"oneOf"`
	HTTPForward       map[string]any    `json:"httpForward"`
}

// MarshalJSON writes the compiled template, children included, so it can be
// restored with FromJSON without recompiling.
func (t *Template) MarshalJSON() ([]byte, error) {
	out := serializedTemplate{
		Title:             t.Title,
		Description:       t.Description,
		Definitions:       orEmptyProperties(t.Definitions),
		TypeDefinitions:   orEmptyProperties(t.TypeDefinitions),
		ParametersSchema:  t.parameters,
		TemplateText:      t.TemplateText,
		DefaultParameters: t.DefaultParameters,
		ContentType:       t.ContentType,
		SourceType:        t.Source.Kind,
		SourceText:        t.Source.Text,
		SourceHash:        t.Source.Hash,
		AllOf:             orEmptyTemplates(t.AllOf),
		AnyOf:             orEmptyTemplates(t.AnyOf),
		OneOf:             orEmptyTemplates(t.OneOf),
		HTTPForward:       t.HTTPForward,
	}
	if out.DefaultParameters == nil {
		out.DefaultParameters = map[string]any{}
	}

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte("\n")), nil
}

// FromJSON restores a template written by MarshalJSON. Comments and
// trailing commas are accepted. Only the validator is rebuilt.
func FromJSON(ctx context.Context, data []byte, opts ...Option) (*Template, error) {
	return fromJSON(ctx, data, newConfig(opts))
}

func fromJSON(ctx context.Context, data []byte, cfg *config) (*Template, error) {
	var in decodedTemplate
	if err := json.Unmarshal(jsonc.ToJSON(data), &in); err != nil {
		return nil, fmt.Errorf("template: decode serialized template: %w", err)
	}

	t := newTemplate(cfg)
	t.Title = in.Title
	t.Description = in.Description
	t.TemplateText = in.TemplateText
	t.HTTPForward = in.HTTPForward
	t.Source = schema.Source{Kind: in.SourceType, Text: in.SourceText, Hash: in.SourceHash}
	if in.ContentType != "" {
		t.ContentType = in.ContentType
	}
	if in.DefaultParameters != nil {
		t.DefaultParameters = in.DefaultParameters
	}

	var err error
	if t.Definitions, err = parseDefinitions(in.Definitions); err != nil {
		return nil, err
	}
	if t.TypeDefinitions, err = parseDefinitions(in.TypeDefinitions); err != nil {
		return nil, err
	}
	if t.defs, err = schema.NewDefinitionSet(t.Definitions); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	if len(in.ParametersSchema) > 0 {
		if t.parameters, err = schema.Parse(in.ParametersSchema); err != nil {
			return nil, fmt.Errorf("template: parametersSchema: %w", err)
		}
	}

	for _, group := range []struct {
		raw  []json.RawMessage
		dest *[]*Template
	}{
		{in.AllOf, &t.AllOf},
		{in.AnyOf, &t.AnyOf},
		{in.OneOf, &t.OneOf},
	} {
		for _, entry := range group.raw {
			child, err := fromJSON(ctx, entry, cfg)
			if err != nil {
				return nil, err
			}
			*group.dest = append(*group.dest, child)
		}
	}

	if err := t.compileValidator(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func orEmptyProperties(p *schema.Properties) *schema.Properties {
	if p == nil {
		return schema.NewProperties()
	}
	return p
}

func orEmptyTemplates(list []*Template) []*Template {
	if list == nil {
		return []*Template{}
	}
	return list
}
