package template

import (
	"github.com/goliatone/go-tmplschema/pkg/schema"
)

// ParametersSchema returns the full parameters schema: the inferred own
// schema plus title, description, type definitions and the schemas of every
// composed template. The result is a fresh copy.
func (t *Template) ParametersSchema() *schema.Schema {
	s := t.parameters.Clone()
	if s == nil {
		s = &schema.Schema{Type: "object", Properties: schema.NewProperties(), Required: []string{}}
	}
	s.Title = schema.String(t.cfg.sanitize(t.Title))
	s.Description = schema.String(t.cfg.sanitize(t.Description))
	s.Definitions = schema.NewProperties()
	if t.TypeDefinitions != nil {
		for pair := t.TypeDefinitions.Oldest(); pair != nil; pair = pair.Next() {
			s.Definitions.Set(pair.Key, pair.Value.Clone())
		}
	}
	if t.cfg.sanitizer != nil {
		for _, name := range s.PropertyNames() {
			prop := s.Property(name)
			if prop.Title != nil {
				prop.Title = schema.String(t.cfg.sanitize(*prop.Title))
			}
			if prop.Description != nil {
				prop.Description = schema.String(t.cfg.sanitize(*prop.Description))
			}
		}
	}

	s.AllOf = childSchemas(t.AllOf)
	s.AnyOf = childSchemas(t.AnyOf)
	s.OneOf = childSchemas(t.OneOf)

	// A definition may describe a property only a composed template uses.
	for _, def := range t.defs.All() {
		if s.HasProperty(def.Name) || !keyInXOf(def.Name, s) {
			continue
		}
		s.SetProperty(def.Name, def.Schema.Clone())
	}
	return s
}

func childSchemas(children []*Template) []*schema.Schema {
	if len(children) == 0 {
		return nil
	}
	out := make([]*schema.Schema, 0, len(children))
	for _, child := range children {
		out = append(out, child.ParametersSchema())
	}
	return out
}

func keyInXOf(key string, s *schema.Schema) bool {
	for _, list := range [][]*schema.Schema{s.AllOf, s.AnyOf, s.OneOf} {
		for _, sub := range list {
			if sub.HasProperty(key) || keyInXOf(key, sub) {
				return true
			}
		}
	}
	return false
}

// CombinedParameters layers, lowest precedence first, the combined
// parameters of composed templates, schema defaults, the template's
// `parameters` block and params. Math expressions are then evaluated
// against the result.
func (t *Template) CombinedParameters(params map[string]any) (map[string]any, error) {
	s := t.ParametersSchema()

	var merged any = map[string]any{}
	for _, child := range t.children() {
		childParams, err := child.CombinedParameters(params)
		if err != nil {
			return nil, err
		}
		merged = deepMerge(merged, childParams)
	}
	out := merged.(map[string]any)

	for _, name := range s.PropertyNames() {
		if def := s.Property(name).Default; def != nil {
			out[name] = schema.CopyValue(def)
		}
	}
	for k, v := range t.DefaultParameters {
		out[k] = schema.CopyValue(v)
	}
	for k, v := range params {
		out[k] = v
	}
	out = schema.NormalizeMap(out)

	if err := applyMath(s, out); err != nil {
		return nil, err
	}
	return out, nil
}

// deepMerge merges src into a copy of dst: objects merge by key, arrays
// concatenate and anything else is replaced by src.
func deepMerge(dst, src any) any {
	switch s := src.(type) {
	case map[string]any:
		d, ok := dst.(map[string]any)
		if !ok {
			break
		}
		out := make(map[string]any, len(d)+len(s))
		for k, v := range d {
			out[k] = schema.CopyValue(v)
		}
		for k, v := range s {
			if cur, ok := out[k]; ok {
				out[k] = deepMerge(cur, v)
				continue
			}
			out[k] = schema.CopyValue(v)
		}
		return out
	case []any:
		d, ok := dst.([]any)
		if !ok {
			break
		}
		out := make([]any, 0, len(d)+len(s))
		for _, v := range d {
			out = append(out, schema.CopyValue(v))
		}
		for _, v := range s {
			out = append(out, schema.CopyValue(v))
		}
		return out
	}
	return schema.CopyValue(src)
}
