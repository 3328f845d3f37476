package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-tmplschema/pkg/validation"
)

// checkRefs rejects every $ref in the definitions block that does not name
// a definition of the same document. Remote and file references are never
// followed.
func checkRefs(raw json.RawMessage) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var defs map[string]any
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("template: definitions: %w", err)
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := walkRefs(name, defs[name]); err != nil {
			return err
		}
	}
	return nil
}

func walkRefs(name string, node any) error {
	switch n := node.(type) {
	case map[string]any:
		if ref, ok := n["$ref"]; ok {
			s, _ := ref.(string)
			if !strings.HasPrefix(s, validation.DefinitionsPrefix) {
				return structuralf(name, "Parsing references failed: %s: unsupported $ref %q, only %s<name> is allowed", name, ref, validation.DefinitionsPrefix)
			}
		}
		keys := make([]string, 0, len(n))
		for key := range n {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := walkRefs(name, n[key]); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range n {
			if err := walkRefs(name, item); err != nil {
				return err
			}
		}
	}
	return nil
}
