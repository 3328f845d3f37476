// Package typeschema resolves the external type libraries referenced by
// `{{name:library:type}}` placeholders.
package typeschema

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-tmplschema/pkg/provider"
	"github.com/goliatone/go-tmplschema/pkg/schema"
)

// Library is one parsed type library.
type Library struct {
	Name   string
	Schema *schema.Schema
}

// Definition returns the named type definition.
func (l *Library) Definition(name string) (*schema.Schema, bool) {
	if l == nil || l.Schema == nil || l.Schema.Definitions == nil {
		return nil, false
	}
	return l.Schema.Definitions.Get(name)
}

// Definitions returns the library's ordered definitions, never nil.
func (l *Library) Definitions() *schema.Properties {
	if l == nil || l.Schema == nil || l.Schema.Definitions == nil {
		return schema.NewProperties()
	}
	return l.Schema.Definitions
}

// NotFoundError reports that the provider could not list or fetch a library.
type NotFoundError struct {
	Name string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("typeschema: list schemas: %v", e.Err)
	}
	return fmt.Sprintf("typeschema: schema %q not found: %v", e.Name, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithParallelism bounds concurrent fetches.
func WithParallelism(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// Resolver loads every library of one provider. The first successful result
// is memoised; returned libraries are shared and must not be mutated.
type Resolver struct {
	provider    provider.SchemaProvider
	logger      zerolog.Logger
	parallelism int

	mu        sync.Mutex
	resolved  bool
	libraries map[string]*Library
}

// New binds a resolver to p. A nil provider resolves to no libraries.
func New(p provider.SchemaProvider, opts ...Option) *Resolver {
	r := &Resolver{
		provider:    p,
		logger:      zerolog.Nop(),
		parallelism: 8,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve lists and fetches all libraries.
func (r *Resolver) Resolve(ctx context.Context) (map[string]*Library, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved {
		return r.libraries, nil
	}
	if r.provider == nil {
		r.resolved = true
		r.libraries = map[string]*Library{}
		return r.libraries, nil
	}

	names, err := r.provider.List(ctx)
	if err != nil {
		return nil, &NotFoundError{Err: err}
	}

	libs := make([]*Library, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, name := range names {
		g.Go(func() error {
			lib, err := r.load(gctx, name)
			if err != nil {
				return err
			}
			libs[i] = lib
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Library, len(libs))
	for _, lib := range libs {
		out[lib.Name] = lib
	}
	r.logger.Debug().Int("libraries", len(out)).Msg("resolved type schemas")
	r.resolved = true
	r.libraries = out
	return out, nil
}

func (r *Resolver) load(ctx context.Context, name string) (*Library, error) {
	doc, err := r.provider.Fetch(ctx, name)
	if err != nil {
		return nil, &NotFoundError{Name: name, Err: err}
	}
	parsed, err := schema.Parse(doc.Raw())
	if err != nil {
		return nil, fmt.Errorf("typeschema: parse %s: %w", doc.Location(), err)
	}
	return &Library{Name: name, Schema: parsed}, nil
}
