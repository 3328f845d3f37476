package schema

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// DefinitionKind tags what an author definition does beyond overlaying
// keywords on the inferred property.
type DefinitionKind int

const (
	// DefinitionKeywords only overlays schema keywords.
	DefinitionKeywords DefinitionKind = iota
	// DefinitionPartial carries a `template` compiled as a partial.
	DefinitionPartial
	// DefinitionMath carries a `mathExpression` evaluated at render time.
	DefinitionMath
	// DefinitionDataFile inlines a data provider resource as the default.
	DefinitionDataFile
	// DefinitionFetch loads the value over HTTP before rendering.
	DefinitionFetch
)

func (k DefinitionKind) String() string {
	switch k {
	case DefinitionKeywords:
		return "keywords"
	case DefinitionPartial:
		return "partial"
	case DefinitionMath:
		return "math"
	case DefinitionDataFile:
		return "dataFile"
	case DefinitionFetch:
		return "fetch"
	default:
		return fmt.Sprintf("definition(%d)", int(k))
	}
}

// directive keywords are consumed by the definition and never copied onto
// the inferred property.
var directiveKeywords = []string{"dataFile", "toBase64", "fromBase64", "url", "pathQuery"}

// Definition is an author definition classified once at load time.
type Definition struct {
	Name  string
	Index int
	Kind  DefinitionKind

	// Schema is the keyword overlay applied to the inferred property.
	Schema *Schema

	Partial string
	Math    string
	Data    *DataFile
	Fetch   *Fetch

	// Dependencies is an explicit dependency list declared on the
	// definition. When set it replaces the inferred one.
	Dependencies []string
}

// DataFile names a data provider resource and its transforms.
type DataFile struct {
	Name       string
	ToBase64   bool
	FromBase64 bool
}

// Fetch describes an HTTP GET whose result becomes the parameter value.
type Fetch struct {
	Endpoint  Endpoint
	PathQuery string
}

// HasDefault reports whether the author supplied a default.
func (d *Definition) HasDefault() bool {
	return d != nil && d.Schema != nil && d.Schema.Default != nil
}

// HasExplicitDependencies reports whether Dependencies replaces inference.
func (d *Definition) HasExplicitDependencies() bool {
	return d != nil && d.Dependencies != nil
}

// HasExplicitInvertDependency reports whether the author listed the
// inverted guards.
func (d *Definition) HasExplicitInvertDependency() bool {
	return d != nil && d.Schema != nil && d.Schema.InvertDependency != nil
}

// ParseDefinition classifies a raw definition node.
func ParseDefinition(name string, index int, raw *Schema) (*Definition, error) {
	def := &Definition{Name: name, Index: index}
	if raw == nil {
		def.Schema = &Schema{}
		return def, nil
	}
	overlay := raw.Clone()

	if v, ok := overlay.ExtraValue("dependencies"); ok {
		list, err := stringList(v)
		if err != nil {
			return nil, fmt.Errorf("schema: definition %q: dependencies: %w", name, err)
		}
		def.Dependencies = list
		overlay.DeleteExtra("dependencies")
	}

	switch {
	case raw.Template != "":
		def.Kind = DefinitionPartial
		def.Partial = raw.Template
	case raw.MathExpression != "":
		def.Kind = DefinitionMath
		def.Math = raw.MathExpression
	}

	if v, ok := raw.ExtraValue("dataFile"); ok {
		fileName, ok := v.(string)
		if !ok || fileName == "" {
			return nil, fmt.Errorf("schema: definition %q: dataFile must be a non-empty string", name)
		}
		def.Kind = DefinitionDataFile
		def.Data = &DataFile{
			Name:       fileName,
			ToBase64:   truthy(raw, "toBase64"),
			FromBase64: truthy(raw, "fromBase64"),
		}
	}

	if v, ok := raw.ExtraValue("url"); ok {
		endpoint, err := ParseEndpoint(v)
		if err != nil {
			return nil, fmt.Errorf("schema: definition %q: %w", name, err)
		}
		fetch := &Fetch{Endpoint: endpoint}
		if q, ok := raw.ExtraValue("pathQuery"); ok {
			fetch.PathQuery, _ = q.(string)
		}
		def.Fetch = fetch
		if def.Kind == DefinitionKeywords {
			def.Kind = DefinitionFetch
		}
	}

	for _, key := range directiveKeywords {
		overlay.DeleteExtra(key)
	}
	def.Schema = overlay
	return def, nil
}

func truthy(s *Schema, key string) bool {
	v, ok := s.ExtraValue(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func stringList(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of names, got %T", v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a property name, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}

// DefinitionSet is the ordered collection of a template's definitions.
type DefinitionSet struct {
	order  []*Definition
	byName map[string]*Definition
}

// NewDefinitionSet classifies every entry of an ordered definitions map.
func NewDefinitionSet(defs *Properties) (*DefinitionSet, error) {
	set := &DefinitionSet{byName: map[string]*Definition{}}
	if defs == nil {
		return set, nil
	}
	idx := 0
	for pair := defs.Oldest(); pair != nil; pair = pair.Next() {
		def, err := ParseDefinition(pair.Key, idx, pair.Value)
		if err != nil {
			return nil, err
		}
		set.order = append(set.order, def)
		set.byName[pair.Key] = def
		idx++
	}
	return set, nil
}

// Get returns the named definition.
func (d *DefinitionSet) Get(name string) (*Definition, bool) {
	if d == nil {
		return nil, false
	}
	def, ok := d.byName[name]
	return def, ok
}

// All returns definitions in declaration order.
func (d *DefinitionSet) All() []*Definition {
	if d == nil {
		return nil
	}
	return d.order
}

// Len returns the number of definitions.
func (d *DefinitionSet) Len() int {
	if d == nil {
		return 0
	}
	return len(d.order)
}

// Endpoint is a URL given either as a string or as its parts.
type Endpoint struct {
	URL      string
	Protocol string
	Host     string
	Port     string
	Path     string
	Auth     string
}

// ParseEndpoint accepts a URL string or a `{protocol, host, port, path,
// auth}` object.
func ParseEndpoint(v any) (Endpoint, error) {
	switch val := v.(type) {
	case string:
		if val == "" {
			return Endpoint{}, fmt.Errorf("url is empty")
		}
		return Endpoint{URL: val}, nil
	case map[string]any:
		ep := Endpoint{
			URL:      stringField(val, "url"),
			Protocol: strings.TrimSuffix(stringField(val, "protocol"), ":"),
			Host:     firstNonEmpty(stringField(val, "host"), stringField(val, "hostname")),
			Port:     stringField(val, "port"),
			Path:     firstNonEmpty(stringField(val, "path"), stringField(val, "pathname")),
			Auth:     stringField(val, "auth"),
		}
		if ep.URL == "" && ep.Host == "" && ep.Path == "" {
			return Endpoint{}, fmt.Errorf("url object needs a host or path")
		}
		return ep, nil
	default:
		return Endpoint{}, fmt.Errorf("url must be a string or an object, got %T", v)
	}
}

// String renders the endpoint as a URL. Protocol defaults to http.
func (e Endpoint) String() string {
	if e.URL != "" {
		return e.URL
	}
	protocol := e.Protocol
	if protocol == "" {
		protocol = "http"
	}
	host := e.Host
	if e.Port != "" && !strings.Contains(host, ":") {
		host = net.JoinHostPort(host, e.Port)
	}
	u := url.URL{Scheme: protocol, Host: host}
	path := e.Path
	if i := strings.IndexByte(path, '?'); i >= 0 {
		u.RawQuery = path[i+1:]
		path = path[:i]
	}
	u.Path = path
	return u.String()
}

// BasicAuth splits a `user:password` auth string.
func (e Endpoint) BasicAuth() (string, string, bool) {
	if e.Auth == "" {
		return "", "", false
	}
	user, pass, _ := strings.Cut(e.Auth, ":")
	return user, pass, true
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%d", int64(v))
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
