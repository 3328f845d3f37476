package template

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cbroglie/mustache"

	"github.com/goliatone/go-tmplschema/internal/structured"
	"github.com/goliatone/go-tmplschema/pkg/mst"
	"github.com/goliatone/go-tmplschema/pkg/schema"
	"github.com/goliatone/go-tmplschema/pkg/validation"
)

type mergeFunc func(acc, curr []byte) ([]byte, error)

type postProcessFunc func(text []byte) ([]byte, error)

var mergeStrategies = map[string]mergeFunc{
	ContentTypeJSON:    structured.MergeJSON,
	ContentTypeXYAML:   structured.MergeYAML,
	ContentTypeYAML:    structured.MergeYAML,
	ContentTypeTextYML: structured.MergeYAML,
}

var postProcessStrategies = map[string]postProcessFunc{
	ContentTypeJSON:    structured.ReformatJSON,
	ContentTypeXYAML:   structured.ReformatYAML,
	ContentTypeYAML:    structured.ReformatYAML,
	ContentTypeTextYML: structured.ReformatYAML,
}

func mergePlain(acc, curr []byte) ([]byte, error) {
	out := make([]byte, 0, len(acc)+len(curr)+1)
	out = append(out, acc...)
	out = append(out, '\n')
	return append(out, curr...), nil
}

// Validate checks params, after defaults and math expressions, against the
// full parameters schema.
func (t *Template) Validate(params map[string]any) validation.Result {
	combined, err := t.CombinedParameters(params)
	if err != nil {
		return validation.Result{Issues: []validation.Issue{{Message: err.Error()}}}
	}
	return t.validator.Validate(combined)
}

// Render validates params and renders the template with every composed
// template. allOf children must render; anyOf and oneOf children whose
// parameters do not validate are left out.
func (t *Template) Render(params map[string]any) (string, error) {
	combined, err := t.CombinedParameters(params)
	if err != nil {
		return "", err
	}
	if res := t.validator.Validate(combined); !res.Valid {
		return "", &ParametersInvalidError{Issues: res.Issues, Parameters: params}
	}

	var fragments [][]byte
	for _, child := range t.AllOf {
		out, err := child.Render(combined)
		if err != nil {
			return "", err
		}
		fragments = append(fragments, []byte(out))
	}
	for _, list := range [][]*Template{t.AnyOf, t.OneOf} {
		for _, child := range list {
			out, err := child.Render(combined)
			if IsParametersInvalid(err) {
				t.cfg.logger.Debug().Str("template", child.Title).Err(err).Msg("skipping composed template")
				continue
			}
			if err != nil {
				return "", err
			}
			fragments = append(fragments, []byte(out))
		}
	}

	own, err := t.renderOwn(combined)
	if err != nil {
		return "", err
	}
	fragments = append(fragments, own)

	merge, ok := mergeStrategies[t.ContentType]
	if !ok {
		merge = mergePlain
	}
	var acc []byte
	for _, fragment := range fragments {
		if len(fragment) == 0 {
			continue
		}
		if len(acc) == 0 {
			acc = fragment
			continue
		}
		if acc, err = merge(acc, fragment); err != nil {
			return "", fmt.Errorf("template: merge %s output: %w", t.ContentType, err)
		}
	}

	if post, ok := postProcessStrategies[t.ContentType]; ok && len(acc) > 0 {
		if acc, err = post(acc); err != nil {
			return "", fmt.Errorf("template: post-process %s output: %w", t.ContentType, err)
		}
	}
	t.cfg.logger.Debug().
		Str("content_type", t.ContentType).
		Int("fragments", len(fragments)).
		Int("bytes", len(acc)).
		Msg("rendered template")
	return string(acc), nil
}

func (t *Template) renderOwn(params map[string]any) ([]byte, error) {
	view, err := t.transform(params)
	if err != nil {
		return nil, err
	}
	text, err := mst.ExpandPartials(mst.StripAnnotations(t.TemplateText), t.Partials())
	if err != nil {
		return nil, fmt.Errorf("template: expand partials: %w", err)
	}
	tmpl, err := mustache.ParseStringRaw(text, true)
	if err != nil {
		return nil, fmt.Errorf("template: parse: %w", err)
	}
	out, err := tmpl.Render(renderView(view))
	if err != nil {
		return nil, fmt.Errorf("template: render: %w", err)
	}
	return []byte(out), nil
}

// transform turns structured values into the text the template expects:
// unset arrays and objects become empty JSON, other arrays, objects and
// `text` values are JSON encoded unless the property is a section.
func (t *Template) transform(params map[string]any) (map[string]any, error) {
	s := t.ParametersSchema()
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	for _, name := range s.PropertyNames() {
		v, err := transformValue(s.Property(name), params[name])
		if err != nil {
			return nil, fmt.Errorf("template: transform %s: %w", name, err)
		}
		if v != nil {
			out[name] = v
		}
	}
	return out, nil
}

func transformValue(s *schema.Schema, v any) (any, error) {
	switch s.Type {
	case "array":
		if v == nil {
			return "[]", nil
		}
		if list, ok := v.([]any); ok && len(list) > 0 && !s.SkipXform {
			return encodeJSON(v)
		}
	case "object":
		if v == nil {
			return "{}", nil
		}
		if !s.SkipXform {
			return encodeJSON(v)
		}
	}
	if s.Format == "text" && v != nil && v != "" {
		return encodeJSON(v)
	}
	return v, nil
}

func encodeJSON(v any) (string, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(b.Bytes(), []byte("\n"))), nil
}

// renderView drops nil values, which the renderer would print, and turns
// whole numbers back into integers.
func renderView(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if item == nil {
				continue
			}
			out[k] = renderView(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			if item == nil {
				out[i] = ""
				continue
			}
			out[i] = renderView(item)
		}
		return out
	case float64:
		if schema.IsIntegral(val) {
			return int64(val)
		}
		return val
	default:
		return v
	}
}
