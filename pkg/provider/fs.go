package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/goliatone/go-tmplschema/pkg/schema"
)

const (
	schemaExt = ".json"
	dataExt   = ".data"
)

// FSSchemaProvider serves `<name>.json` type libraries from a directory of
// an fs.FS. Comments in the files are allowed.
type FSSchemaProvider struct {
	files fs.FS
	dir   string
	cache *ResourceCache[schema.Document]
}

// NewFSSchemaProvider reads schemas from dir inside files.
func NewFSSchemaProvider(files fs.FS, dir string, opts ...Option) *FSSchemaProvider {
	cfg := applyOptions(opts)
	p := &FSSchemaProvider{files: files, dir: cleanDir(dir)}
	p.cache = NewResourceCache(p.load, cfg.cacheLimit, cfg.logger.With().Str("provider", "fs-schema").Logger())
	return p
}

// NewDirSchemaProvider reads schemas from an OS directory.
func NewDirSchemaProvider(root string, opts ...Option) *FSSchemaProvider {
	return NewFSSchemaProvider(os.DirFS(root), ".", opts...)
}

// List returns the names of every `.json` file, without extension.
func (p *FSSchemaProvider) List(ctx context.Context) ([]string, error) {
	return listNames(ctx, p.files, p.dir, schemaExt, func(file string) string {
		name, _, _ := strings.Cut(file, ".")
		return name
	})
}

// Fetch returns the named schema document.
func (p *FSSchemaProvider) Fetch(ctx context.Context, name string) (schema.Document, error) {
	return p.cache.Fetch(ctx, name)
}

// Invalidate clears cached documents.
func (p *FSSchemaProvider) Invalidate() {
	p.cache.Invalidate()
}

func (p *FSSchemaProvider) load(ctx context.Context, name string) (schema.Document, error) {
	location := path.Join(p.dir, name+schemaExt)
	data, err := loadFromFS(ctx, p.files, location)
	if err != nil {
		return schema.Document{}, err
	}
	return schema.NewDocument(name, location, jsonc.ToJSON(data))
}

// FSDataProvider serves `<name>.data` files from a directory of an fs.FS.
type FSDataProvider struct {
	files fs.FS
	dir   string
	cache *ResourceCache[[]byte]
}

// NewFSDataProvider reads data files from dir inside files.
func NewFSDataProvider(files fs.FS, dir string, opts ...Option) *FSDataProvider {
	cfg := applyOptions(opts)
	p := &FSDataProvider{files: files, dir: cleanDir(dir)}
	p.cache = NewResourceCache(p.load, cfg.cacheLimit, cfg.logger.With().Str("provider", "fs-data").Logger())
	return p
}

// NewDirDataProvider reads data files from an OS directory.
func NewDirDataProvider(root string, opts ...Option) *FSDataProvider {
	return NewFSDataProvider(os.DirFS(root), ".", opts...)
}

// List returns the names of every `.data` file, without extension.
func (p *FSDataProvider) List(ctx context.Context) ([]string, error) {
	return listNames(ctx, p.files, p.dir, dataExt, func(file string) string {
		return strings.TrimSuffix(file, dataExt)
	})
}

// Fetch returns the contents of `<name>.data`.
func (p *FSDataProvider) Fetch(ctx context.Context, name string) ([]byte, error) {
	data, err := p.cache.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// Invalidate clears cached files.
func (p *FSDataProvider) Invalidate() {
	p.cache.Invalidate()
}

func (p *FSDataProvider) load(ctx context.Context, name string) ([]byte, error) {
	return loadFromFS(ctx, p.files, path.Join(p.dir, name+dataExt))
}

func loadFromFS(ctx context.Context, files fs.FS, name string) ([]byte, error) {
	if name == "" {
		return nil, errors.New("provider: fs path is required")
	}
	if files == nil {
		return nil, errors.New("provider: fs is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := fs.ReadFile(files, name)
	if err != nil {
		return nil, fmt.Errorf("provider: read %s: %w", name, err)
	}
	return data, nil
}

func listNames(ctx context.Context, files fs.FS, dir, ext string, nameOf func(string) string) ([]string, error) {
	if files == nil {
		return nil, errors.New("provider: fs is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("provider: list %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		names = append(names, nameOf(entry.Name()))
	}
	sort.Strings(names)
	return names, nil
}

func cleanDir(dir string) string {
	if dir == "" {
		return "."
	}
	return path.Clean(dir)
}
