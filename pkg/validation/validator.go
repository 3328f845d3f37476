// Package validation checks template parameters against an inferred
// parameters schema and reports field-level issues.
package validation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-tmplschema/pkg/schema"
)

// Issue is one validation failure.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	// Reason is Message without the leading field name.
	Reason  string `json:"-"`
	Details string `json:"details,omitempty"`
	Keyword string `json:"keyword,omitempty"`
}

// Result captures validation outcomes.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// Validator is a compiled parameters schema. allOf branches are validated
// alongside the node's own keywords so every failing field is reported.
type Validator struct {
	root     *schema.Schema
	kin      *openapi3.Schema
	origins  map[*openapi3.Schema]*schema.Schema
	refs     map[string]*openapi3.Schema
	pending  map[string]bool
	position map[string]int

	allOf []*Validator
	anyOf []*Validator
	oneOf []*Validator
}

// Compile converts s into a validator. Local `#/definitions/<name>`
// references resolve against s.Definitions. The error describes keywords
// and references the validation engine rejects.
func Compile(ctx context.Context, s *schema.Schema) (*Validator, error) {
	if s == nil {
		return nil, errors.New("validation: schema is nil")
	}
	v := &Validator{
		root:     s,
		origins:  map[*openapi3.Schema]*schema.Schema{},
		refs:     map[string]*openapi3.Schema{},
		pending:  map[string]bool{},
		position: map[string]int{},
	}
	kin, err := v.convert(s, true)
	if err != nil {
		return nil, fmt.Errorf("validation: compile schema: %w", err)
	}
	v.kin = kin
	if err := v.kin.Validate(ctx,
		openapi3.DisableSchemaDefaultsValidation(),
		openapi3.DisableExamplesValidation(),
	); err != nil {
		return nil, fmt.Errorf("validation: compile schema: %w", err)
	}
	for i, name := range s.PropertyNames() {
		v.position[name] = i
	}

	if v.allOf, err = compileAll(ctx, s.AllOf); err != nil {
		return nil, err
	}
	if v.anyOf, err = compileAll(ctx, s.AnyOf); err != nil {
		return nil, err
	}
	if v.oneOf, err = compileAll(ctx, s.OneOf); err != nil {
		return nil, err
	}
	return v, nil
}

func compileAll(ctx context.Context, list []*schema.Schema) ([]*Validator, error) {
	out := make([]*Validator, 0, len(list))
	for _, s := range list {
		child, err := Compile(ctx, s)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// Validate reports every issue found in params.
func (v *Validator) Validate(params map[string]any) Result {
	value := map[string]any{}
	if params != nil {
		value = schema.NormalizeMap(params)
	}
	issues := v.issues(value)
	return Result{Valid: len(issues) == 0, Issues: issues}
}

func (v *Validator) issues(value map[string]any) []Issue {
	var issues []Issue
	if err := v.kin.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		for _, se := range flatten(err) {
			if issue, ok := v.issueFromSchemaError(se); ok {
				issues = append(issues, issue)
			}
		}
	}
	issues = append(issues, dependencyIssues(v.root, value, nil)...)
	v.sortIssues(issues)

	for _, child := range v.allOf {
		issues = append(issues, child.issues(value)...)
	}
	if len(v.anyOf) > 0 && countValid(v.anyOf, value) == 0 {
		msg := "should match some schema in anyOf"
		issues = append(issues, Issue{Keyword: "anyOf", Message: msg, Reason: msg})
	}
	if len(v.oneOf) > 0 && countValid(v.oneOf, value) != 1 {
		msg := "should match exactly one schema in oneOf"
		issues = append(issues, Issue{Keyword: "oneOf", Message: msg, Reason: msg})
	}
	return issues
}

func countValid(list []*Validator, value map[string]any) int {
	n := 0
	for _, child := range list {
		if len(child.issues(value)) == 0 {
			n++
		}
	}
	return n
}

func (v *Validator) sortIssues(issues []Issue) {
	rank := func(issue Issue) int {
		head, _, _ := strings.Cut(strings.TrimPrefix(issue.Path, "/"), "/")
		head = unescapePointer(head)
		if pos, ok := v.position[head]; ok {
			return pos
		}
		return len(v.position)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return rank(issues[i]) < rank(issues[j])
	})
}

func flatten(err error) []*openapi3.SchemaError {
	var out []*openapi3.SchemaError
	switch e := err.(type) {
	case *openapi3.SchemaError:
		out = append(out, e)
	case openapi3.MultiError:
		for _, inner := range e {
			out = append(out, flatten(inner)...)
		}
	default:
		var se *openapi3.SchemaError
		if errors.As(err, &se) {
			out = append(out, se)
		}
	}
	return out
}

func (v *Validator) issueFromSchemaError(se *openapi3.SchemaError) (Issue, bool) {
	pointer := se.JSONPointer()
	origin := v.origins[se.Schema]
	keyword := se.SchemaField

	if keyword == "required" && len(pointer) > 0 {
		missing := pointer[len(pointer)-1]
		parent := fieldPath(v.root, pointer[:len(pointer)-1])
		msg := fmt.Sprintf("should have required property '%s'", missing)
		return Issue{
			Path:    pointerString(pointer),
			Field:   parent,
			Message: withField(parent, msg),
			Reason:  msg,
			Keyword: keyword,
		}, true
	}

	field := fieldPath(v.root, pointer)
	issue := Issue{
		Path:    pointerString(pointer),
		Field:   field,
		Keyword: keyword,
	}
	var msg string
	switch keyword {
	case "type", "nullable":
		issue.Keyword = "type"
		msg = "should be of type " + typeName(se.Schema)
	case "enum":
		if origin != nil && origin.Enum == nil && origin.Const != nil {
			issue.Keyword = "const"
			msg = "should be equal to constant"
		} else {
			msg = "should be equal to one of the allowed values: " + joinValues(se.Schema.Enum)
		}
	case "minimum":
		if se.Schema.ExclusiveMin {
			// reported once as exclusiveMinimum
			return Issue{}, false
		}
		msg = "should be >= " + formatFloat(se.Schema.Min)
	case "exclusiveMinimum":
		msg = "should be > " + formatFloat(se.Schema.Min)
	case "maximum":
		if se.Schema.ExclusiveMax {
			return Issue{}, false
		}
		msg = "should be <= " + formatFloat(se.Schema.Max)
	case "exclusiveMaximum":
		msg = "should be < " + formatFloat(se.Schema.Max)
	case "minLength":
		msg = fmt.Sprintf("should NOT be shorter than %d characters", se.Schema.MinLength)
	case "maxLength":
		msg = fmt.Sprintf("should NOT be longer than %d characters", deref(se.Schema.MaxLength))
	case "minItems":
		msg = fmt.Sprintf("should NOT have fewer than %d items", se.Schema.MinItems)
	case "maxItems":
		msg = fmt.Sprintf("should NOT have more than %d items", deref(se.Schema.MaxItems))
	case "pattern":
		msg = "should match pattern"
		issue.Details = "failed to match pattern: " + se.Schema.Pattern
	case "multipleOf":
		msg = "should be multiple of " + formatFloat(se.Schema.MultipleOf)
	case "uniqueItems":
		msg = "should NOT have duplicate items"
	case "minProperties":
		msg = fmt.Sprintf("should NOT have fewer than %d properties", se.Schema.MinProps)
	case "maxProperties":
		msg = fmt.Sprintf("should NOT have more than %d properties", deref(se.Schema.MaxProps))
	case "not":
		msg = "should NOT be valid"
	case "format":
		msg = fmt.Sprintf("should match format %q", se.Schema.Format)
		if cause := errors.Unwrap(se.Origin); cause != nil {
			issue.Details = cause.Error()
		}
	case "properties":
		// the engine reports additionalProperties: false on the object
		issue.Keyword = "additionalProperties"
		issue.Details = strings.TrimSpace(se.Reason)
		msg = "should NOT have additional properties"
	default:
		msg = strings.TrimSpace(se.Reason)
	}
	issue.Message = withField(field, msg)
	issue.Reason = msg
	return issue, true
}

func dependencyIssues(s *schema.Schema, value any, pointer []string) []Issue {
	if s == nil {
		return nil
	}
	var issues []Issue
	switch val := value.(type) {
	case map[string]any:
		if s.Dependencies != nil {
			for pair := s.Dependencies.Oldest(); pair != nil; pair = pair.Next() {
				if _, present := val[pair.Key]; !present {
					continue
				}
				for _, dep := range pair.Value {
					if _, ok := val[dep]; ok {
						continue
					}
					field := fieldPath(nil, pointer)
					msg := fmt.Sprintf("should have property %s when property %s is present", dep, pair.Key)
					issues = append(issues, Issue{
						Path:    pointerString(append(append([]string{}, pointer...), pair.Key)),
						Field:   field,
						Keyword: "dependencies",
						Message: withField(field, msg),
						Reason:  msg,
					})
				}
			}
		}
		for _, name := range s.PropertyNames() {
			if child, ok := val[name]; ok {
				issues = append(issues, dependencyIssues(s.Property(name), child, append(append([]string{}, pointer...), name))...)
			}
		}
	case []any:
		if s.Items != nil {
			for i, item := range val {
				issues = append(issues, dependencyIssues(s.Items, item, append(append([]string{}, pointer...), strconv.Itoa(i)))...)
			}
		}
	}
	return issues
}

func withField(field, msg string) string {
	if field == "" {
		return msg
	}
	return "parameter " + field + " " + msg
}

// fieldPath renders a JSON pointer as `name[0].child`. Numeric segments are
// indexes when the schema at that point is an array, or when no schema is
// known.
func fieldPath(root *schema.Schema, pointer []string) string {
	var b strings.Builder
	node := follow(root, root)
	for _, segment := range pointer {
		node = follow(root, node)
		isIndex := isNumeric(segment) && (node == nil || node.Type == "array" || node.Items != nil)
		if isIndex {
			b.WriteString("[" + segment + "]")
			if node != nil {
				node = node.Items
			}
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(segment)
		if node != nil {
			node = node.Property(segment)
		}
	}
	return b.String()
}

func pointerString(pointer []string) string {
	if len(pointer) == 0 {
		return ""
	}
	parts := make([]string, len(pointer))
	for i, segment := range pointer {
		segment = strings.ReplaceAll(segment, "~", "~0")
		parts[i] = strings.ReplaceAll(segment, "/", "~1")
	}
	return "/" + strings.Join(parts, "/")
}

func unescapePointer(segment string) string {
	segment = strings.ReplaceAll(segment, "~1", "/")
	return strings.ReplaceAll(segment, "~0", "~")
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func typeName(s *openapi3.Schema) string {
	if s == nil || s.Type == nil {
		return "any"
	}
	types := s.Type.Slice()
	if s.Nullable {
		types = append(types, "null")
	}
	return strings.Join(types, ",")
}

func joinValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if f, ok := v.(float64); ok {
			parts[i] = formatFloat(&f)
			continue
		}
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func deref(u *uint64) uint64 {
	if u == nil {
		return 0
	}
	return *u
}
