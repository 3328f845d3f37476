package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"templates/types.json": &fstest.MapFile{Data: []byte(`{
			// shared types
			"definitions": {"port": {"type": "integer", "default": 443}}
		}`)},
		"templates/other.schema.json": &fstest.MapFile{Data: []byte(`{}`)},
		"templates/textData.txt.data": &fstest.MapFile{Data: []byte("Lorem ipsum\n")},
		"templates/readme.md":         &fstest.MapFile{Data: []byte("# docs")},
	}
}

func TestFSSchemaProvider(t *testing.T) {
	ctx := context.Background()
	p := NewFSSchemaProvider(testFS(), "templates", WithLogger(zerolog.Nop()))

	names, err := p.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"other", "types"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	doc, err := p.Fetch(ctx, "types")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if doc.Name() != "types" || doc.Location() != "templates/types.json" {
		t.Fatalf("unexpected document %q at %q", doc.Name(), doc.Location())
	}
	if string(doc.Raw()) == "" || containsComment(doc.Raw()) {
		t.Fatalf("expected comments stripped, got %s", doc.Raw())
	}

	if _, err := p.Fetch(ctx, "missing"); err == nil {
		t.Fatalf("expected error for missing schema")
	}
}

func containsComment(raw []byte) bool {
	for i := 0; i+1 < len(raw); i++ {
		if raw[i] == '/' && raw[i+1] == '/' {
			return true
		}
	}
	return false
}

func TestFSDataProvider(t *testing.T) {
	ctx := context.Background()
	p := NewFSDataProvider(testFS(), "templates")

	names, err := p.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"textData.txt"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	data, err := p.Fetch(ctx, "textData.txt")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "Lorem ipsum\n" {
		t.Fatalf("unexpected data %q", data)
	}
}

func TestMemoryProvider(t *testing.T) {
	ctx := context.Background()
	m := NewMemory().
		AddSchema("types", []byte(`{"definitions":{}}`)).
		AddData("blob", []byte("abc"))

	names, _ := m.Schemas().List(ctx)
	if diff := cmp.Diff([]string{"types"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if _, err := m.Schemas().Fetch(ctx, "nope"); err == nil {
		t.Fatalf("expected missing schema error")
	}
	data, err := m.Data().Fetch(ctx, "blob")
	if err != nil || string(data) != "abc" {
		t.Fatalf("unexpected data %q (%v)", data, err)
	}
}

func TestResourceCache_EvictsOldest(t *testing.T) {
	var calls int32
	cache := NewResourceCache(func(_ context.Context, key string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "value-" + key, nil
	}, 2, zerolog.Nop())

	ctx := context.Background()
	for _, key := range []string{"a", "b", "a", "c"} {
		if _, err := cache.Fetch(ctx, key); err != nil {
			t.Fatalf("fetch %s: %v", key, err)
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 loads, got %d", calls)
	}
	if cache.Contains("a") || !cache.Contains("b") || !cache.Contains("c") {
		t.Fatalf("expected a evicted, got len %d", cache.Len())
	}

	cache.Invalidate()
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache after invalidate")
	}
}

func TestResourceCache_DoesNotCacheErrors(t *testing.T) {
	fail := true
	cache := NewResourceCache(func(_ context.Context, key string) (int, error) {
		if fail {
			return 0, errors.New("boom")
		}
		return 7, nil
	}, DefaultCacheLimit, zerolog.Nop())

	if _, err := cache.Fetch(context.Background(), "k"); err == nil {
		t.Fatalf("expected error")
	}
	fail = false
	v, err := cache.Fetch(context.Background(), "k")
	if err != nil || v != 7 {
		t.Fatalf("expected retry to succeed, got %d (%v)", v, err)
	}
}

func TestResourceCache_SharesConcurrentFetches(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	cache := NewResourceCache(func(_ context.Context, key string) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return key, nil
	}, DefaultCacheLimit, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.Fetch(context.Background(), "same")
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got < 1 || got > 5 {
		t.Fatalf("unexpected load count %d", got)
	}
	if !cache.Contains("same") {
		t.Fatalf("expected cached value")
	}
}

func TestResourceCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetchErr := make(chan error, 2)
	var calls int32
	cache := NewResourceCache(func(ctx context.Context, key string) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		fetchErr <- ctx.Err()
		return "v-" + key, nil
	}, DefaultCacheLimit, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.Fetch(ctx, "k")
		firstErr <- err
	}()
	<-started
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to stop waiting, got %v", err)
	}

	second := make(chan string, 1)
	go func() {
		value, err := cache.Fetch(context.Background(), "k")
		if err != nil {
			value = "error: " + err.Error()
		}
		second <- value
	}()
	close(release)

	if got := <-second; got != "v-k" {
		t.Fatalf("expected the shared fetch to complete, got %q", got)
	}
	if err := <-fetchErr; err != nil {
		t.Fatalf("expected the fetch context to survive cancellation, got %v", err)
	}
}
