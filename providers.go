package tmplschema

import (
	"io/fs"

	"github.com/goliatone/go-tmplschema/pkg/provider"
)

// NewDirProviders returns options wiring directory-backed schema and data
// providers. An empty directory leaves that provider unset.
func NewDirProviders(schemaDir, dataDir string, opts ...provider.Option) []Option {
	var out []Option
	if schemaDir != "" {
		out = append(out, WithSchemaProvider(provider.NewDirSchemaProvider(schemaDir, opts...)))
	}
	if dataDir != "" {
		out = append(out, WithDataProvider(provider.NewDirDataProvider(dataDir, opts...)))
	}
	return out
}

// NewFSProviders is NewDirProviders for directories inside files.
func NewFSProviders(files fs.FS, schemaDir, dataDir string, opts ...provider.Option) []Option {
	var out []Option
	if schemaDir != "" {
		out = append(out, WithSchemaProvider(provider.NewFSSchemaProvider(files, schemaDir, opts...)))
	}
	if dataDir != "" {
		out = append(out, WithDataProvider(provider.NewFSDataProvider(files, dataDir, opts...)))
	}
	return out
}
