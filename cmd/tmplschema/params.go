package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-tmplschema/internal/structured"
)

// loadParams reads a JSON or YAML parameter file and applies `key=value`
// overrides on top. Dotted keys address nested objects and values are
// parsed as YAML scalars, so `port=80` is a number.
func loadParams(file string, sets []string) (map[string]any, error) {
	params := map[string]any{}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read params: %w", err)
		}
		node, err := structured.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse params %s: %w", file, err)
		}
		decoded, err := structured.Decode(node)
		if err != nil {
			return nil, err
		}
		if decoded != nil {
			m, ok := decoded.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("params %s: expected an object, got %T", file, decoded)
			}
			params = m
		}
	}

	for _, set := range sets {
		key, raw, ok := strings.Cut(set, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", set)
		}
		value, err := parseScalar(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", set, err)
		}
		setPath(params, strings.Split(key, "."), value)
	}
	return params, nil
}

func parseScalar(raw string) (any, error) {
	if raw == "" {
		return "", nil
	}
	node, err := structured.ParseYAML([]byte(raw))
	if err != nil {
		return nil, err
	}
	return structured.Decode(node)
}

func setPath(dst map[string]any, path []string, value any) {
	for _, key := range path[:len(path)-1] {
		next, ok := dst[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			dst[key] = next
		}
		dst = next
	}
	dst[path[len(path)-1]] = value
}
