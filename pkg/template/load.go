package template

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-tmplschema/internal/structured"
	"github.com/goliatone/go-tmplschema/pkg/mst"
	"github.com/goliatone/go-tmplschema/pkg/schema"
	"github.com/goliatone/go-tmplschema/pkg/typeschema"
	"github.com/goliatone/go-tmplschema/pkg/validation"
)

// document is a YAML template after conversion to JSON.
type document struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ContentType string            `json:"contentType"`
	Template    string            `json:"template"`
	Definitions json.RawMessage   `json:"definitions"`
	Parameters  map[string]any    `json:"parameters"`
	AllOf       []json.RawMessage `json:"allOf"`
	AnyOf       []json.RawMessage `json:"anyOf"`
	OneOf       []json.RawMessage `json:"oneOf"`
	HTTPForward map[string]any    `json:"httpForward"`
}

// LoadMST compiles annotated Mustache text. The first comment becomes the
// template description.
func LoadMST(ctx context.Context, text string, opts ...Option) (*Template, error) {
	return loadMST(ctx, text, newConfig(opts))
}

// LoadYAML compiles a YAML template document.
func LoadYAML(ctx context.Context, text string, opts ...Option) (*Template, error) {
	return loadYAML(ctx, text, newConfig(opts))
}

func loadMST(ctx context.Context, text string, cfg *config) (*Template, error) {
	tokens, err := mst.Parse(text)
	if err != nil {
		return nil, err
	}
	t := newTemplate(cfg)
	t.Source = schema.NewSource(schema.SourceKindMST, text)
	t.TemplateText = text
	if desc, ok := mst.FirstComment(tokens); ok {
		t.Description = desc
	}
	if err := t.compile(ctx, tokens); err != nil {
		return nil, err
	}
	return t, nil
}

func loadYAML(ctx context.Context, text string, cfg *config) (*Template, error) {
	if err := ValidateDocument(text); err != nil {
		return nil, err
	}
	node, err := structured.ParseYAML([]byte(text))
	if err != nil {
		return nil, err
	}
	raw, err := structured.EncodeJSON(node, 0)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("template: decode document: %w", err)
	}

	t := newTemplate(cfg)
	t.Source = schema.NewSource(schema.SourceKindYAML, text)
	t.Title = doc.Title
	t.Description = doc.Description
	t.TemplateText = doc.Template
	t.HTTPForward = doc.HTTPForward
	if doc.ContentType != "" {
		t.ContentType = doc.ContentType
	}
	if doc.Parameters != nil {
		t.DefaultParameters = doc.Parameters
	}
	if err := checkRefs(doc.Definitions); err != nil {
		return nil, err
	}
	if t.Definitions, err = parseDefinitions(doc.Definitions); err != nil {
		return nil, err
	}

	for _, group := range []struct {
		raw  []json.RawMessage
		dest *[]*Template
	}{
		{doc.AllOf, &t.AllOf},
		{doc.AnyOf, &t.AnyOf},
		{doc.OneOf, &t.OneOf},
	} {
		if *group.dest, err = loadChildren(ctx, group.raw, cfg); err != nil {
			return nil, err
		}
	}

	tokens, err := mst.Parse(t.TemplateText)
	if err != nil {
		return nil, err
	}
	if err := t.compile(ctx, tokens); err != nil {
		return nil, err
	}
	return t, nil
}

func parseDefinitions(raw json.RawMessage) (*schema.Properties, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return schema.NewProperties(), nil
	}
	defs := schema.NewProperties()
	if err := json.Unmarshal(raw, defs); err != nil {
		return nil, fmt.Errorf("template: definitions: %w", err)
	}
	return defs, nil
}

// loadChildren compiles composed templates concurrently, keeping their
// declared order. Each child is handed over as its JSON text.
func loadChildren(ctx context.Context, raw []json.RawMessage, cfg *config) ([]*Template, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]*Template, len(raw))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.parallelism)
	for i, entry := range raw {
		g.Go(func() error {
			child, err := loadYAML(gctx, string(entry), cfg)
			if err != nil {
				return err
			}
			out[i] = child
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// compile infers the parameters schema and builds the validator.
func (t *Template) compile(ctx context.Context, tokens []mst.Token) error {
	defs, err := schema.NewDefinitionSet(t.Definitions)
	if err != nil {
		return fmt.Errorf("template: %w", err)
	}
	t.defs = defs

	var libraries map[string]*typeschema.Library
	if t.cfg.resolver != nil {
		if libraries, err = t.cfg.resolver.Resolve(ctx); err != nil {
			return err
		}
	}
	overlays, err := t.resolveDataFiles(ctx, defs)
	if err != nil {
		return err
	}

	in := newInferrer(defs, overlays, libraries)
	own, err := in.run(tokens)
	if err != nil {
		return err
	}
	t.parameters = own
	t.TypeDefinitions = in.typeDefs

	if err := t.compileValidator(ctx); err != nil {
		return err
	}
	t.cfg.logger.Debug().
		Str("source", string(t.Source.Kind)).
		Str("hash", t.Source.Hash).
		Int("properties", len(own.PropertyNames())).
		Int("children", len(t.children())).
		Msg("compiled template")
	return nil
}

func (t *Template) compileValidator(ctx context.Context) error {
	s := t.ParametersSchema()
	v, err := validation.Compile(ctx, s)
	if err != nil {
		dump, _ := json.MarshalIndent(s, "", "  ")
		return &SchemaCompileError{Schema: string(dump), Err: err}
	}
	t.validator = v
	return nil
}
