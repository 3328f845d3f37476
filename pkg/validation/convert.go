package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-tmplschema/pkg/schema"
)

// DefinitionsPrefix is the only $ref form the validator resolves: a named
// entry of the root schema's definitions.
const DefinitionsPrefix = "#/definitions/"

// unsupportedKeywords are assertions the validation engine cannot express.
// A schema using one fails to compile instead of silently accepting values.
var unsupportedKeywords = map[string]bool{
	"patternProperties":     true,
	"propertyNames":         true,
	"contains":              true,
	"minContains":           true,
	"maxContains":           true,
	"additionalItems":       true,
	"prefixItems":           true,
	"if":                    true,
	"then":                  true,
	"else":                  true,
	"dependentRequired":     true,
	"dependentSchemas":      true,
	"unevaluatedProperties": true,
	"unevaluatedItems":      true,
	"$dynamicRef":           true,
	"$recursiveRef":         true,
}

// convert builds the engine schema for s. At the top of a validator the
// combinators are left out and validated as child validators instead.
func (v *Validator) convert(s *schema.Schema, top bool) (*openapi3.Schema, error) {
	if ref, ok, err := refOf(s); err != nil {
		return nil, err
	} else if ok {
		return v.resolve(ref)
	}
	out := openapi3.NewSchema()
	if err := v.fill(out, s, top); err != nil {
		return nil, err
	}
	return out, nil
}

func (v *Validator) schemaRef(s *schema.Schema) (*openapi3.SchemaRef, error) {
	ref, ok, err := refOf(s)
	if err != nil {
		return nil, err
	}
	if ok {
		target, err := v.resolve(ref)
		if err != nil {
			return nil, err
		}
		return openapi3.NewSchemaRef(ref, target), nil
	}
	out := openapi3.NewSchema()
	if err := v.fill(out, s, false); err != nil {
		return nil, err
	}
	return openapi3.NewSchemaRef("", out), nil
}

// resolve converts the definition ref points at once. Keywords next to a
// $ref are ignored.
func (v *Validator) resolve(ref string) (*openapi3.Schema, error) {
	if out, ok := v.refs[ref]; ok {
		return out, nil
	}
	target, err := lookupRef(v.root, ref)
	if err != nil {
		return nil, err
	}

	if inner, ok, err := refOf(target); err != nil {
		return nil, err
	} else if ok {
		if v.pending[ref] {
			return nil, fmt.Errorf("$ref %q is circular", ref)
		}
		v.pending[ref] = true
		out, err := v.resolve(inner)
		if err != nil {
			return nil, err
		}
		v.refs[ref] = out
		return out, nil
	}

	out := openapi3.NewSchema()
	v.refs[ref] = out
	if err := v.fill(out, target, false); err != nil {
		return nil, fmt.Errorf("$ref %q: %w", ref, err)
	}
	return out, nil
}

func (v *Validator) fill(out *openapi3.Schema, s *schema.Schema, top bool) error {
	v.origins[out] = s
	if s == nil {
		return nil
	}

	if s.Type != "" {
		out.Type = &openapi3.Types{s.Type}
		if s.Type == "null" {
			out.Type = &openapi3.Types{}
			out.Nullable = true
		}
	}
	out.Format = s.Format
	switch {
	case s.Enum != nil:
		out.Enum = make([]any, len(s.Enum))
		for i, item := range s.Enum {
			out.Enum[i] = schema.NormalizeValue(item)
		}
	case s.Const != nil:
		out.Enum = []any{schema.NormalizeValue(s.Const)}
	}

	out.Min = s.Minimum
	out.Max = s.Maximum
	out.ExclusiveMin = s.ExclusiveMinimum
	out.ExclusiveMax = s.ExclusiveMaximum
	if s.MinLength != nil {
		out.MinLength = *s.MinLength
	}
	out.MaxLength = s.MaxLength
	out.Pattern = s.Pattern
	if s.MinItems != nil {
		out.MinItems = *s.MinItems
	}
	out.MaxItems = s.MaxItems

	if s.Items != nil {
		items, err := v.schemaRef(s.Items)
		if err != nil {
			return fmt.Errorf("items: %w", err)
		}
		out.Items = items
	}

	names := s.PropertyNames()
	if len(names) > 0 {
		out.Properties = make(openapi3.Schemas, len(names))
		for _, name := range names {
			prop, err := v.schemaRef(s.Property(name))
			if err != nil {
				return fmt.Errorf("property %s: %w", name, err)
			}
			out.Properties[name] = prop
		}
	}
	if len(s.Required) > 0 {
		out.Required = append([]string(nil), s.Required...)
	}

	if s.Extra != nil {
		for pair := s.Extra.Oldest(); pair != nil; pair = pair.Next() {
			if err := v.keyword(out, pair.Key, pair.Value); err != nil {
				return fmt.Errorf("keyword %s: %w", pair.Key, err)
			}
		}
	}
	if out.Items == nil && out.Type.Includes("array") {
		out.Items = openapi3.NewSchemaRef("", openapi3.NewSchema())
	}

	if !top {
		var err error
		if out.AllOf, err = v.schemaRefs(s.AllOf); err != nil {
			return fmt.Errorf("allOf: %w", err)
		}
		if out.AnyOf, err = v.schemaRefs(s.AnyOf); err != nil {
			return fmt.Errorf("anyOf: %w", err)
		}
		if out.OneOf, err = v.schemaRefs(s.OneOf); err != nil {
			return fmt.Errorf("oneOf: %w", err)
		}
	}
	return nil
}

// keyword maps an untyped keyword onto out. Keywords outside the
// JSON-Schema assertion vocabulary are annotations and are skipped.
func (v *Validator) keyword(out *openapi3.Schema, key string, value any) error {
	if unsupportedKeywords[key] {
		return errors.New("not supported by the validator")
	}
	switch key {
	case "type":
		list, ok := value.([]any)
		if !ok {
			return fmt.Errorf("expected a string or a list of strings, got %T", value)
		}
		types := openapi3.Types{}
		for _, item := range list {
			name, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected a type name, got %T", item)
			}
			if name == "null" {
				out.Nullable = true
				continue
			}
			types = append(types, name)
		}
		out.Type = &types
	case "multipleOf":
		n, ok := number(value)
		if !ok || n <= 0 {
			return fmt.Errorf("expected a positive number, got %v", value)
		}
		out.MultipleOf = &n
	case "uniqueItems":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected a boolean, got %T", value)
		}
		out.UniqueItems = b
	case "minProperties", "maxProperties":
		n, ok := count(value)
		if !ok {
			return fmt.Errorf("expected a non-negative integer, got %v", value)
		}
		if key == "minProperties" {
			out.MinProps = n
		} else {
			out.MaxProps = &n
		}
	case "exclusiveMinimum", "exclusiveMaximum":
		n, ok := number(value)
		if !ok {
			return fmt.Errorf("expected a number or a boolean, got %T", value)
		}
		if key == "exclusiveMinimum" {
			if out.Min == nil || *out.Min <= n {
				out.Min, out.ExclusiveMin = &n, true
			}
		} else if out.Max == nil || *out.Max >= n {
			out.Max, out.ExclusiveMax = &n, true
		}
	case "additionalProperties":
		if b, ok := value.(bool); ok {
			out.AdditionalProperties = openapi3.AdditionalProperties{Has: &b}
			return nil
		}
		sub, err := subschema(value)
		if err != nil {
			return err
		}
		ref, err := v.schemaRef(sub)
		if err != nil {
			return err
		}
		out.AdditionalProperties = openapi3.AdditionalProperties{Schema: ref}
	case "not":
		sub, err := subschema(value)
		if err != nil {
			return err
		}
		ref, err := v.schemaRef(sub)
		if err != nil {
			return err
		}
		out.Not = ref
	case "items":
		// object items are typed; anything left here is the tuple form
		return errors.New("tuple items are not supported by the validator")
	case "required":
		return fmt.Errorf("expected a list of names, got %T", value)
	case "dependencies":
		if _, ok := value.([]any); ok {
			// definition-level guard list consumed by inference
			return nil
		}
		return errors.New("schema dependencies are not supported by the validator")
	}
	return nil
}

func (v *Validator) schemaRefs(list []*schema.Schema) (openapi3.SchemaRefs, error) {
	if len(list) == 0 {
		return nil, nil
	}
	refs := make(openapi3.SchemaRefs, len(list))
	for i, s := range list {
		ref, err := v.schemaRef(s)
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}
	return refs, nil
}

func refOf(s *schema.Schema) (string, bool, error) {
	raw, ok := s.ExtraValue("$ref")
	if !ok {
		return "", false, nil
	}
	ref, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("$ref must be a string, got %T", raw)
	}
	return ref, true, nil
}

// lookupRef finds the definition ref names on root.
func lookupRef(root *schema.Schema, ref string) (*schema.Schema, error) {
	name, ok := strings.CutPrefix(ref, DefinitionsPrefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("$ref %q: only %s<name> references are supported", ref, DefinitionsPrefix)
	}
	name = unescapePointer(name)
	if root != nil && root.Definitions != nil {
		if target, ok := root.Definitions.Get(name); ok && target != nil {
			return target, nil
		}
	}
	return nil, fmt.Errorf("$ref %q: no definition named %s", ref, name)
}

// follow returns the definition behind a $ref node, or s itself.
func follow(root, s *schema.Schema) *schema.Schema {
	for range 8 {
		ref, ok, _ := refOf(s)
		if !ok {
			return s
		}
		target, err := lookupRef(root, ref)
		if err != nil {
			return s
		}
		s = target
	}
	return s
}

func subschema(value any) (*schema.Schema, error) {
	if _, ok := value.(map[string]any); !ok {
		return nil, fmt.Errorf("expected a schema object, got %T", value)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return schema.Parse(raw)
}

func number(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func count(value any) (uint64, bool) {
	n, ok := number(value)
	if !ok || n < 0 || n != math.Trunc(n) {
		return 0, false
	}
	return uint64(n), true
}
