package tmplschema

import (
	"embed"
	"io/fs"
)

//go:embed examples/templates/* examples/schemas/*.json examples/data/*.data
var embeddedExamples embed.FS

// ExamplesFS exposes the bundled sample templates with their type schemas and
// data files, laid out as:
//
//	templates/hello.mst
//	templates/service.yml
//	schemas/types.json
//	data/banner.data
//
// Use NewFSProviders(ExamplesFS(), "schemas", "data") to resolve them.
func ExamplesFS() fs.FS {
	sub, err := fs.Sub(embeddedExamples, "examples")
	if err != nil {
		return embeddedExamples
	}
	return sub
}
