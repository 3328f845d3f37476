package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-tmplschema/pkg/schema"
)

// Memory is an in-memory schema and data provider.
type Memory struct {
	mu      sync.RWMutex
	schemas map[string][]byte
	data    map[string][]byte
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{
		schemas: map[string][]byte{},
		data:    map[string][]byte{},
	}
}

// AddSchema registers a JSON type library.
func (m *Memory) AddSchema(name string, raw []byte) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[name] = append([]byte(nil), raw...)
	return m
}

// AddData registers a data file.
func (m *Memory) AddData(name string, raw []byte) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = append([]byte(nil), raw...)
	return m
}

// Schemas exposes the schema side of the provider.
func (m *Memory) Schemas() SchemaProvider {
	return memorySchemas{m}
}

// Data exposes the data side of the provider.
func (m *Memory) Data() DataProvider {
	return memoryData{m}
}

type memorySchemas struct{ m *Memory }

func (s memorySchemas) List(_ context.Context) ([]string, error) {
	return s.m.names(s.m.schemas), nil
}

func (s memorySchemas) Fetch(_ context.Context, name string) (schema.Document, error) {
	raw, ok := s.m.get(s.m.schemas, name)
	if !ok {
		return schema.Document{}, fmt.Errorf("provider: schema %q not found", name)
	}
	return schema.NewDocument(name, "memory:"+name, raw)
}

type memoryData struct{ m *Memory }

func (d memoryData) List(_ context.Context) ([]string, error) {
	return d.m.names(d.m.data), nil
}

func (d memoryData) Fetch(_ context.Context, name string) ([]byte, error) {
	raw, ok := d.m.get(d.m.data, name)
	if !ok {
		return nil, fmt.Errorf("provider: data file %q not found", name)
	}
	return raw, nil
}

func (m *Memory) names(src map[string][]byte) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Memory) get(src map[string][]byte, name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := src[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), raw...), true
}
