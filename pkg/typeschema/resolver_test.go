package typeschema

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-tmplschema/pkg/provider"
	"github.com/goliatone/go-tmplschema/pkg/schema"
)

type countingProvider struct {
	provider.SchemaProvider
	lists int
}

func (c *countingProvider) List(ctx context.Context) ([]string, error) {
	c.lists++
	return c.SchemaProvider.List(ctx)
}

func TestResolver_ResolvesAndMemoises(t *testing.T) {
	mem := provider.NewMemory().
		AddSchema("types", []byte(`{"definitions":{"port":{"type":"integer","minimum":0,"default":443},"bool_section":{"type":"boolean"}}}`)).
		AddSchema("empty", []byte(`{}`))
	counting := &countingProvider{SchemaProvider: mem.Schemas()}
	r := New(counting, WithParallelism(2))

	libs, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	port, ok := libs["types"].Definition("port")
	if !ok || port.Type != "integer" || port.Default != float64(443) {
		t.Fatalf("unexpected port definition %+v", port)
	}
	if libs["empty"].Definitions().Len() != 0 {
		t.Fatalf("expected no definitions in empty library")
	}

	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if counting.lists != 1 {
		t.Fatalf("expected memoised result, listed %d times", counting.lists)
	}
}

type brokenProvider struct{}

func (brokenProvider) List(context.Context) ([]string, error) { return []string{"gone"}, nil }
func (brokenProvider) Fetch(context.Context, string) (schema.Document, error) {
	return schema.Document{}, errors.New("no such file")
}

func TestResolver_NotFound(t *testing.T) {
	_, err := New(brokenProvider{}).Resolve(context.Background())
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Name != "gone" {
		t.Fatalf("expected NotFoundError for gone, got %v", err)
	}
}

func TestResolver_NilProvider(t *testing.T) {
	libs, err := New(nil).Resolve(context.Background())
	if err != nil || len(libs) != 0 {
		t.Fatalf("expected empty result, got %v (%v)", libs, err)
	}
}
