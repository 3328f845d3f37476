// Package provider supplies the type-schema and data-file collaborators a
// template compile consults, with filesystem and in-memory implementations
// fronted by a bounded cache.
package provider

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-tmplschema/pkg/schema"
)

// SchemaProvider lists and fetches named JSON-Schema type libraries. A
// provider must not change while a compile is using it.
type SchemaProvider interface {
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, name string) (schema.Document, error)
}

// DataProvider lists and fetches named data files.
type DataProvider interface {
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// DefaultCacheLimit bounds the number of cached resources.
const DefaultCacheLimit = 100

// Option configures a provider.
type Option func(*options)

type options struct {
	logger     zerolog.Logger
	cacheLimit int
}

func defaultOptions() options {
	return options{
		logger:     zerolog.Nop(),
		cacheLimit: DefaultCacheLimit,
	}
}

// WithLogger sets the logger used for cache and fetch diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCacheLimit overrides the number of resources kept in memory. Values
// below one disable eviction.
func WithCacheLimit(limit int) Option {
	return func(o *options) {
		o.cacheLimit = limit
	}
}

func applyOptions(opts []Option) options {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
