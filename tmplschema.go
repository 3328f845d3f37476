// Package tmplschema compiles annotated Mustache templates into JSON-Schema
// parameter descriptions and renders them. It re-exports the pieces of
// pkg/template most callers need.
package tmplschema

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-tmplschema/pkg/provider"
	"github.com/goliatone/go-tmplschema/pkg/template"
)

// Template aliases template.Template.
type Template = template.Template

// Option aliases template.Option.
type Option = template.Option

// ParametersInvalidError aliases template.ParametersInvalidError so callers
// can match it with errors.As without importing pkg/template.
type ParametersInvalidError = template.ParametersInvalidError

// LoadMustache compiles annotated Mustache text.
func LoadMustache(ctx context.Context, text string, opts ...Option) (*Template, error) {
	return template.LoadMST(ctx, text, opts...)
}

// LoadYAML compiles a YAML template document.
func LoadYAML(ctx context.Context, text string, opts ...Option) (*Template, error) {
	return template.LoadYAML(ctx, text, opts...)
}

// FromJSON restores a template saved with json.Marshal.
func FromJSON(ctx context.Context, data []byte, opts ...Option) (*Template, error) {
	return template.FromJSON(ctx, data, opts...)
}

// LoadFile reads name from files and picks the loader from its extension:
// `.mst`/`.mustache` for Mustache, `.yml`/`.yaml` for documents and `.json`
// for saved templates.
func LoadFile(ctx context.Context, files fs.FS, name string, opts ...Option) (*Template, error) {
	data, err := fs.ReadFile(files, name)
	if err != nil {
		return nil, fmt.Errorf("tmplschema: read %s: %w", name, err)
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".mst", ".mustache":
		return LoadMustache(ctx, string(data), opts...)
	case ".yml", ".yaml":
		return LoadYAML(ctx, string(data), opts...)
	case ".json":
		return FromJSON(ctx, data, opts...)
	default:
		return nil, fmt.Errorf("tmplschema: unsupported template extension %q", path.Ext(name))
	}
}

// Validate reports every problem found in a template text, either Mustache or
// a YAML document.
func Validate(text string) error {
	return template.ValidateText(text)
}

// IsValid reports whether Validate finds no problem.
func IsValid(text string) bool {
	return template.IsValid(text)
}

// WithSchemaProvider forwards to template.WithSchemaProvider.
func WithSchemaProvider(p provider.SchemaProvider) Option {
	return template.WithSchemaProvider(p)
}

// WithDataProvider forwards to template.WithDataProvider.
func WithDataProvider(p provider.DataProvider) Option {
	return template.WithDataProvider(p)
}

// WithHTTPClient forwards to template.WithHTTPClient.
func WithHTTPClient(client *http.Client) Option {
	return template.WithHTTPClient(client)
}

// WithLogger forwards to template.WithLogger.
func WithLogger(logger zerolog.Logger) Option {
	return template.WithLogger(logger)
}

// WithParallelism forwards to template.WithParallelism.
func WithParallelism(n int) Option {
	return template.WithParallelism(n)
}

// WithSanitizedText forwards to template.WithSanitizedText.
func WithSanitizedText() Option {
	return template.WithSanitizedText()
}
