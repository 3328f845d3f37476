// Package schema holds the JSON-Schema node model produced by template
// inference: an ordered property map, the keywords the inference engine
// reasons about as typed fields, and everything else preserved verbatim.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Properties keeps schema properties in insertion order.
type Properties = orderedmap.OrderedMap[string, *Schema]

// Dependencies maps a property to the properties it requires.
type Dependencies = orderedmap.OrderedMap[string, []string]

// Extra holds keywords that have no typed field, in document order.
type Extra = orderedmap.OrderedMap[string, any]

// NewProperties returns an empty property map.
func NewProperties() *Properties {
	return orderedmap.New[string, *Schema]()
}

// NewDependencies returns an empty dependency map.
func NewDependencies() *Dependencies {
	return orderedmap.New[string, []string]()
}

// Schema is a JSON-Schema node. Nil pointers, empty strings and nil
// interfaces mean the keyword is absent.
type Schema struct {
	Type        string
	Format      string
	Title       *string
	Description *string
	Default     any
	Const       any
	Enum        []any

	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum bool
	ExclusiveMaximum bool
	MinLength        *uint64
	MaxLength        *uint64
	Pattern          string
	MinItems         *uint64
	MaxItems         *uint64

	Items        *Schema
	Properties   *Properties
	Required     []string
	Dependencies *Dependencies

	// InvertDependency lists guards that must be false for the property to
	// apply. SkipXform keeps a value out of the render-time JSON transform.
	InvertDependency []string
	SkipXform        bool
	MathExpression   string
	Template         string

	Definitions *Properties
	AllOf       []*Schema
	AnyOf       []*Schema
	OneOf       []*Schema

	Extra *Extra
}

// String returns a pointer to s, for Title and Description.
func String(s string) *string {
	return &s
}

// Property returns the named property, or nil.
func (s *Schema) Property(name string) *Schema {
	if s == nil || s.Properties == nil {
		return nil
	}
	prop, _ := s.Properties.Get(name)
	return prop
}

// HasProperty reports whether name is a declared property.
func (s *Schema) HasProperty(name string) bool {
	if s == nil || s.Properties == nil {
		return false
	}
	_, ok := s.Properties.Get(name)
	return ok
}

// SetProperty adds or replaces a property, creating the map when needed.
func (s *Schema) SetProperty(name string, prop *Schema) {
	if s.Properties == nil {
		s.Properties = NewProperties()
	}
	s.Properties.Set(name, prop)
}

// PropertyNames lists properties in order.
func (s *Schema) PropertyNames() []string {
	if s == nil || s.Properties == nil {
		return nil
	}
	names := make([]string, 0, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// IsRequired reports whether name is listed in Required.
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, req := range s.Required {
		if req == name {
			return true
		}
	}
	return false
}

// ExtraValue returns an untyped keyword.
func (s *Schema) ExtraValue(key string) (any, bool) {
	if s == nil || s.Extra == nil {
		return nil, false
	}
	return s.Extra.Get(key)
}

// SetExtra stores an untyped keyword.
func (s *Schema) SetExtra(key string, value any) {
	if s.Extra == nil {
		s.Extra = orderedmap.New[string, any]()
	}
	s.Extra.Set(key, value)
}

// DeleteExtra removes an untyped keyword.
func (s *Schema) DeleteExtra(key string) {
	if s.Extra == nil {
		return
	}
	s.Extra.Delete(key)
	if s.Extra.Len() == 0 {
		s.Extra = nil
	}
}

// Parse decodes a schema from JSON, keeping key order.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// MarshalJSON writes typed keywords in a fixed order followed by Extra.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	w := &objectWriter{}
	w.field("type", s.Type, s.Type != "")
	w.field("format", s.Format, s.Format != "")
	w.field("title", s.Title, s.Title != nil)
	w.field("description", s.Description, s.Description != nil)
	w.field("default", s.Default, s.Default != nil)
	w.field("const", s.Const, s.Const != nil)
	w.field("enum", s.Enum, s.Enum != nil)
	w.field("minimum", s.Minimum, s.Minimum != nil)
	w.field("maximum", s.Maximum, s.Maximum != nil)
	w.field("exclusiveMinimum", s.ExclusiveMinimum, s.ExclusiveMinimum)
	w.field("exclusiveMaximum", s.ExclusiveMaximum, s.ExclusiveMaximum)
	w.field("minLength", s.MinLength, s.MinLength != nil)
	w.field("maxLength", s.MaxLength, s.MaxLength != nil)
	w.field("pattern", s.Pattern, s.Pattern != "")
	w.field("minItems", s.MinItems, s.MinItems != nil)
	w.field("maxItems", s.MaxItems, s.MaxItems != nil)
	w.field("items", s.Items, s.Items != nil)
	w.field("properties", orEmpty(s.Properties), s.Properties != nil)
	w.field("required", s.Required, s.Required != nil)
	w.field("dependencies", s.Dependencies, s.Dependencies != nil)
	w.field("invertDependency", s.InvertDependency, s.InvertDependency != nil)
	w.field("skip_xform", s.SkipXform, s.SkipXform)
	w.field("mathExpression", s.MathExpression, s.MathExpression != "")
	w.field("template", s.Template, s.Template != "")
	w.field("definitions", orEmpty(s.Definitions), s.Definitions != nil)
	w.field("allOf", s.AllOf, s.AllOf != nil)
	w.field("anyOf", s.AnyOf, s.AnyOf != nil)
	w.field("oneOf", s.OneOf, s.OneOf != nil)
	if s.Extra != nil {
		for pair := s.Extra.Oldest(); pair != nil; pair = pair.Next() {
			w.field(pair.Key, pair.Value, true)
		}
	}
	return w.bytes()
}

// UnmarshalJSON reads a schema object, routing unknown keywords to Extra.
func (s *Schema) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) == 0 || data[0] != '{' {
		return fmt.Errorf("schema: expected object, got %.20s", data)
	}

	fields := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, fields); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	*s = Schema{}
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		if err := s.setField(pair.Key, pair.Value); err != nil {
			return fmt.Errorf("schema: keyword %q: %w", pair.Key, err)
		}
	}
	return nil
}

func (s *Schema) setField(key string, raw json.RawMessage) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		switch key {
		case "default", "const":
			// null values collapse to absent
			return nil
		}
	}

	switch key {
	case "type":
		var t any
		if err := json.Unmarshal(raw, &t); err != nil {
			return err
		}
		if str, ok := t.(string); ok {
			s.Type = str
			return nil
		}
		s.SetExtra(key, t)
		return nil
	case "format":
		return json.Unmarshal(raw, &s.Format)
	case "title":
		return json.Unmarshal(raw, &s.Title)
	case "description":
		return json.Unmarshal(raw, &s.Description)
	case "default":
		return json.Unmarshal(raw, &s.Default)
	case "const":
		return json.Unmarshal(raw, &s.Const)
	case "enum":
		return json.Unmarshal(raw, &s.Enum)
	case "minimum":
		return json.Unmarshal(raw, &s.Minimum)
	case "maximum":
		return json.Unmarshal(raw, &s.Maximum)
	case "exclusiveMinimum", "exclusiveMaximum":
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		b, ok := v.(bool)
		if !ok {
			s.SetExtra(key, v)
			return nil
		}
		if key == "exclusiveMinimum" {
			s.ExclusiveMinimum = b
		} else {
			s.ExclusiveMaximum = b
		}
		return nil
	case "minLength":
		return json.Unmarshal(raw, &s.MinLength)
	case "maxLength":
		return json.Unmarshal(raw, &s.MaxLength)
	case "pattern":
		return json.Unmarshal(raw, &s.Pattern)
	case "minItems":
		return json.Unmarshal(raw, &s.MinItems)
	case "maxItems":
		return json.Unmarshal(raw, &s.MaxItems)
	case "items":
		if isObject(raw) {
			return json.Unmarshal(raw, &s.Items)
		}
	case "properties":
		props := NewProperties()
		if err := json.Unmarshal(raw, props); err != nil {
			return err
		}
		s.Properties = props
		return nil
	case "required":
		if isArray(raw) {
			return json.Unmarshal(raw, &s.Required)
		}
	case "dependencies":
		if isObject(raw) {
			deps := NewDependencies()
			if err := json.Unmarshal(raw, deps); err == nil {
				s.Dependencies = deps
				return nil
			}
		}
	case "invertDependency":
		return json.Unmarshal(raw, &s.InvertDependency)
	case "skip_xform":
		return json.Unmarshal(raw, &s.SkipXform)
	case "mathExpression":
		return json.Unmarshal(raw, &s.MathExpression)
	case "template":
		var text any
		if err := json.Unmarshal(raw, &text); err != nil {
			return err
		}
		if str, ok := text.(string); ok {
			s.Template = str
			return nil
		}
		s.SetExtra(key, text)
		return nil
	case "definitions":
		defs := NewProperties()
		if err := json.Unmarshal(raw, defs); err != nil {
			return err
		}
		s.Definitions = defs
		return nil
	case "allOf":
		return json.Unmarshal(raw, &s.AllOf)
	case "anyOf":
		return json.Unmarshal(raw, &s.AnyOf)
	case "oneOf":
		return json.Unmarshal(raw, &s.OneOf)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	s.SetExtra(key, v)
	return nil
}

func orEmpty(props *Properties) any {
	if props == nil || props.Len() == 0 {
		return json.RawMessage("{}")
	}
	return props
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

type objectWriter struct {
	buf bytes.Buffer
	n   int
	err error
}

func (w *objectWriter) field(key string, value any, present bool) {
	if !present || w.err != nil {
		return
	}
	if w.n == 0 {
		w.buf.WriteByte('{')
	} else {
		w.buf.WriteByte(',')
	}
	w.n++

	k, _ := json.Marshal(key)
	w.buf.Write(k)
	w.buf.WriteByte(':')
	v, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("schema: marshal %q: %w", key, err)
		return
	}
	w.buf.Write(v)
}

func (w *objectWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.n == 0 {
		return []byte("{}"), nil
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}
