package template

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-tmplschema/pkg/validation"
)

// ErrNoHTTPForward is returned by ForwardHTTP when the template carries no
// httpForward directive.
var ErrNoHTTPForward = errors.New("httpForward was not defined for this template")

// StructuralError reports a template that references something it cannot
// resolve (an unknown schema, type or partial) or a section shape the
// inference engine does not support. Name is the offending placeholder.
type StructuralError struct {
	Name   string
	Reason string
}

func (e *StructuralError) Error() string {
	reason := strings.TrimSpace(e.Reason)
	if reason == "" {
		reason = "invalid template structure: " + e.Name
	}
	return "template: " + reason
}

func structuralf(name, format string, args ...any) *StructuralError {
	return &StructuralError{Name: name, Reason: fmt.Sprintf(format, args...)}
}

// SchemaCompileError wraps a validator compile failure. Schema holds the
// offending parameters schema as indented JSON.
type SchemaCompileError struct {
	Schema string
	Err    error
}

func (e *SchemaCompileError) Error() string {
	return fmt.Sprintf("template: failed to compile parameter validator\nschema:\n%s\ncompile error:\n%v", e.Schema, e.Err)
}

func (e *SchemaCompileError) Unwrap() error { return e.Err }

// ParametersInvalidError carries every validation issue together with the
// parameters the caller supplied.
type ParametersInvalidError struct {
	Issues     []validation.Issue
	Parameters map[string]any
}

func (e *ParametersInvalidError) Error() string {
	var b strings.Builder
	b.WriteString("template: parameters failed validation")
	for _, issue := range e.Issues {
		b.WriteString("\n  ")
		b.WriteString(issue.Message)
		if issue.Details != "" {
			b.WriteString(" (")
			b.WriteString(issue.Details)
			b.WriteString(")")
		}
	}
	return b.String()
}

// NetworkError reports a failed fetch, forward or data load.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	switch e.Op {
	case "forward":
		return fmt.Sprintf("error forwarding to %s: %v", e.URL, e.Err)
	case "data":
		return fmt.Sprintf("error loading data file %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("error loading %s: %v", e.URL, e.Err)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsParametersInvalid reports whether err is, or wraps, a validation failure.
func IsParametersInvalid(err error) bool {
	var target *ParametersInvalidError
	return errors.As(err, &target)
}
