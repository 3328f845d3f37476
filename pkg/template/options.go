package template

import (
	"net/http"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-tmplschema/pkg/provider"
	"github.com/goliatone/go-tmplschema/pkg/typeschema"
)

const defaultParallelism = 4

// Option customises how templates are loaded and rendered.
type Option func(*config)

type config struct {
	schemas     provider.SchemaProvider
	resolver    *typeschema.Resolver
	data        provider.DataProvider
	client      *http.Client
	logger      zerolog.Logger
	parallelism int
	sanitizer   *bluemonday.Policy
}

// WithSchemaProvider supplies the type libraries used by
// `name:schema:type` placeholders.
func WithSchemaProvider(p provider.SchemaProvider) Option {
	return func(c *config) {
		c.schemas = p
		c.resolver = nil
	}
}

// WithTypeResolver shares an already configured resolver, so several loads
// reuse the same fetched libraries.
func WithTypeResolver(r *typeschema.Resolver) Option {
	return func(c *config) {
		c.resolver = r
	}
}

// WithDataProvider supplies the files referenced by `dataFile` definitions.
func WithDataProvider(p provider.DataProvider) Option {
	return func(c *config) {
		c.data = p
	}
}

// WithHTTPClient overrides the client used by FetchHTTP and ForwardHTTP.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithParallelism bounds how many composed child templates compile at once.
func WithParallelism(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// WithSanitizedText strips markup from titles and descriptions surfaced in
// the parameters schema.
func WithSanitizedText() Option {
	return func(c *config) {
		c.sanitizer = bluemonday.StrictPolicy()
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		client:      http.DefaultClient,
		logger:      zerolog.Nop(),
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.resolver == nil && c.schemas != nil {
		c.resolver = typeschema.New(c.schemas, typeschema.WithLogger(c.logger))
	}
	return c
}

func (c *config) sanitize(s string) string {
	if c == nil || c.sanitizer == nil || s == "" {
		return s
	}
	return c.sanitizer.Sanitize(s)
}
