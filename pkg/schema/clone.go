package schema

import (
	"github.com/mohae/deepcopy"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Clone returns a deep copy of the node.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := *s
	out.Title = cloneString(s.Title)
	out.Description = cloneString(s.Description)
	out.Default = CopyValue(s.Default)
	out.Const = CopyValue(s.Const)
	if s.Enum != nil {
		out.Enum = CopyValue(s.Enum).([]any)
	}
	out.Minimum = cloneFloat(s.Minimum)
	out.Maximum = cloneFloat(s.Maximum)
	out.MinLength = cloneUint(s.MinLength)
	out.MaxLength = cloneUint(s.MaxLength)
	out.MinItems = cloneUint(s.MinItems)
	out.MaxItems = cloneUint(s.MaxItems)
	out.Items = s.Items.Clone()
	out.Properties = cloneProperties(s.Properties)
	out.Required = cloneStrings(s.Required)
	out.Dependencies = CloneDependencies(s.Dependencies)
	out.InvertDependency = cloneStrings(s.InvertDependency)
	out.Definitions = cloneProperties(s.Definitions)
	out.AllOf = cloneList(s.AllOf)
	out.AnyOf = cloneList(s.AnyOf)
	out.OneOf = cloneList(s.OneOf)
	if s.Extra != nil {
		out.Extra = orderedmap.New[string, any]()
		for pair := s.Extra.Oldest(); pair != nil; pair = pair.Next() {
			out.Extra.Set(pair.Key, CopyValue(pair.Value))
		}
	}
	return &out
}

// Overlay assigns every keyword present on src onto s, replacing what was
// there. Nested nodes are not merged.
func (s *Schema) Overlay(src *Schema) {
	if src == nil {
		return
	}
	src = src.Clone()
	if src.Type != "" {
		s.Type = src.Type
	}
	if src.Format != "" {
		s.Format = src.Format
	}
	if src.Title != nil {
		s.Title = src.Title
	}
	if src.Description != nil {
		s.Description = src.Description
	}
	if src.Default != nil {
		s.Default = src.Default
	}
	if src.Const != nil {
		s.Const = src.Const
	}
	if src.Enum != nil {
		s.Enum = src.Enum
	}
	if src.Minimum != nil {
		s.Minimum = src.Minimum
	}
	if src.Maximum != nil {
		s.Maximum = src.Maximum
	}
	if src.ExclusiveMinimum {
		s.ExclusiveMinimum = true
	}
	if src.ExclusiveMaximum {
		s.ExclusiveMaximum = true
	}
	if src.MinLength != nil {
		s.MinLength = src.MinLength
	}
	if src.MaxLength != nil {
		s.MaxLength = src.MaxLength
	}
	if src.Pattern != "" {
		s.Pattern = src.Pattern
	}
	if src.MinItems != nil {
		s.MinItems = src.MinItems
	}
	if src.MaxItems != nil {
		s.MaxItems = src.MaxItems
	}
	if src.Items != nil {
		s.Items = src.Items
	}
	if src.Properties != nil {
		s.Properties = src.Properties
	}
	if src.Required != nil {
		s.Required = src.Required
	}
	if src.Dependencies != nil {
		s.Dependencies = src.Dependencies
	}
	if src.InvertDependency != nil {
		s.InvertDependency = src.InvertDependency
	}
	if src.SkipXform {
		s.SkipXform = true
	}
	if src.MathExpression != "" {
		s.MathExpression = src.MathExpression
	}
	if src.Template != "" {
		s.Template = src.Template
	}
	if src.Definitions != nil {
		s.Definitions = src.Definitions
	}
	if src.AllOf != nil {
		s.AllOf = src.AllOf
	}
	if src.AnyOf != nil {
		s.AnyOf = src.AnyOf
	}
	if src.OneOf != nil {
		s.OneOf = src.OneOf
	}
	if src.Extra != nil {
		for pair := src.Extra.Oldest(); pair != nil; pair = pair.Next() {
			s.SetExtra(pair.Key, pair.Value)
		}
	}
}

// CopyValue deep copies a decoded JSON value.
func CopyValue(v any) any {
	if v == nil {
		return nil
	}
	return deepcopy.Copy(v)
}

// CloneDependencies copies a dependency map.
func CloneDependencies(deps *Dependencies) *Dependencies {
	if deps == nil {
		return nil
	}
	out := NewDependencies()
	for pair := deps.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, cloneStrings(pair.Value))
	}
	return out
}

func cloneProperties(props *Properties) *Properties {
	if props == nil {
		return nil
	}
	out := NewProperties()
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value.Clone())
	}
	return out
}

func cloneList(list []*Schema) []*Schema {
	if list == nil {
		return nil
	}
	out := make([]*Schema, len(list))
	for i, item := range list {
		out[i] = item.Clone()
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneUint(u *uint64) *uint64 {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}
