package template

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/goliatone/go-tmplschema/pkg/schema"
)

// resolveDataFiles loads every dataFile definition and returns the overlay
// each one applies: the file content as a hidden default.
func (t *Template) resolveDataFiles(ctx context.Context, defs *schema.DefinitionSet) (map[string]*schema.Schema, error) {
	overlays := map[string]*schema.Schema{}
	for _, def := range defs.All() {
		if def.Data == nil {
			continue
		}
		if t.cfg.data == nil {
			return nil, structuralf(def.Name, "%s references data file %s but no data provider is configured", def.Name, def.Data.Name)
		}
		raw, err := t.cfg.data.Fetch(ctx, def.Data.Name)
		if err != nil {
			return nil, &NetworkError{Op: "data", URL: def.Data.Name, Err: err}
		}

		content := string(raw)
		switch {
		case def.Data.ToBase64:
			content = base64.StdEncoding.EncodeToString(raw)
		case def.Data.FromBase64:
			content = decodeBase64Lenient(content)
		}

		overlay := def.Schema.Clone()
		overlay.Format = "hidden"
		overlay.Default = content
		overlays[def.Name] = overlay
		t.cfg.logger.Debug().Str("definition", def.Name).Str("file", def.Data.Name).Int("bytes", len(content)).Msg("loaded data file")
	}
	return overlays, nil
}

// decodeBase64Lenient ignores characters outside the base64 alphabet and
// any trailing partial quantum, like a browser's atob without the errors.
func decodeBase64Lenient(s string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/':
			return r
		default:
			return -1
		}
	}, s)
	if len(clean)%4 == 1 {
		clean = clean[:len(clean)-1]
	}
	out, err := base64.RawStdEncoding.DecodeString(clean)
	if err != nil {
		return ""
	}
	return string(out)
}
