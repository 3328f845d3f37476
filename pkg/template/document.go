package template

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-tmplschema/internal/structured"
	"github.com/goliatone/go-tmplschema/pkg/mst"
	"github.com/goliatone/go-tmplschema/pkg/schema"
	"github.com/goliatone/go-tmplschema/pkg/validation"
)

// FormatMustache marks string keywords holding Mustache text.
const FormatMustache = "mustache"

//go:embed template.schema.json
var documentSchemaJSON []byte

func init() {
	openapi3.DefineStringFormatValidator(FormatMustache, openapi3.NewCallbackValidator(mst.Validate))
}

var documentValidator = sync.OnceValues(func() (*validation.Validator, error) {
	s, err := schema.Parse(documentSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("template: document schema: %w", err)
	}
	return validation.Compile(context.Background(), s)
})

// ValidateText checks template source without compiling it. A YAML mapping
// is checked as a template document, anything else as annotated Mustache.
func ValidateText(text string) error {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err == nil {
		if n := documentRoot(&doc); n != nil && isDocumentMapping(n) {
			return validateDocument(n)
		}
	}
	return mst.Validate(text)
}

// IsValid reports whether ValidateText accepts text.
func IsValid(text string) bool {
	return ValidateText(text) == nil
}

// ValidateDocument checks a YAML template document against the template
// document schema. Every template text inside it must parse as Mustache.
func ValidateDocument(text string) error {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return fmt.Errorf("template: invalid YAML: %w", err)
	}
	n := documentRoot(&doc)
	if n == nil || n.Kind != yaml.MappingNode {
		return errors.New("template: document must be a mapping")
	}
	return validateDocument(n)
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return nil
}

func isDocumentMapping(n *yaml.Node) bool {
	if n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i < len(n.Content); i += 2 {
		if n.Content[i].Kind != yaml.ScalarNode {
			return false
		}
	}
	return true
}

func validateDocument(n *yaml.Node) error {
	v, err := documentValidator()
	if err != nil {
		return err
	}
	decoded, err := structured.Decode(n)
	if err != nil {
		return fmt.Errorf("template: %w", err)
	}
	doc, ok := decoded.(map[string]any)
	if !ok {
		return errors.New("template: document must be a mapping")
	}

	var errs []error
	for _, issue := range v.Validate(doc).Issues {
		msg := issue.Reason
		if issue.Details != "" {
			msg += " (" + issue.Details + ")"
		}
		if issue.Field != "" {
			msg = issue.Field + ": " + msg
		}
		errs = append(errs, errors.New("template: "+msg))
	}
	return errors.Join(errs...)
}
