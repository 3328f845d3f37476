package template

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-tmplschema/pkg/mst"
	"github.com/goliatone/go-tmplschema/pkg/schema"
	"github.com/goliatone/go-tmplschema/pkg/typeschema"
)

// unindexed places properties without an author definition after every
// defined one, in order of first appearance.
const unindexed = 1000

// primitives maps a bare `name::type` annotation to its inferred schema.
var primitives = map[string]func() *schema.Schema{
	"text":    func() *schema.Schema { return &schema.Schema{Type: "string", Format: "text"} },
	"array":   func() *schema.Schema { return &schema.Schema{Type: "array", Items: &schema.Schema{Type: "string"}} },
	"hidden":  func() *schema.Schema { return &schema.Schema{Type: "string", Format: "hidden"} },
	"boolean": func() *schema.Schema { return &schema.Schema{Type: "boolean"} },
	"number":  func() *schema.Schema { return &schema.Schema{Type: "number"} },
	"integer": func() *schema.Schema { return &schema.Schema{Type: "integer"} },
	"string":  func() *schema.Schema { return &schema.Schema{Type: "string"} },
	"object":  func() *schema.Schema { return &schema.Schema{Type: "object"} },
}

// inferrer builds the parameters schema of one template. It is used once
// and discarded.
type inferrer struct {
	defs      *schema.DefinitionSet
	overlays  map[string]*schema.Schema
	typeDefs  *schema.Properties
	libraries map[string]*typeschema.Library

	partials  map[string]*schema.Schema
	compiling map[string]bool
}

func newInferrer(defs *schema.DefinitionSet, overlays map[string]*schema.Schema, libraries map[string]*typeschema.Library) *inferrer {
	return &inferrer{
		defs:      defs,
		overlays:  overlays,
		typeDefs:  schema.NewProperties(),
		libraries: libraries,
		partials:  map[string]*schema.Schema{},
		compiling: map[string]bool{},
	}
}

// run resolves type definitions and infers the schema of the token tree.
func (in *inferrer) run(tokens []mst.Token) (*schema.Schema, error) {
	for _, def := range in.defs.All() {
		if def.Partial != "" {
			if _, err := in.partial(def); err != nil {
				return nil, err
			}
			continue
		}
		in.typeDefs.Set(def.Name, in.overlay(def.Name))
	}

	out, err := in.walk(tokens)
	if err != nil {
		return nil, err
	}
	if out.Type == "string" && out.Properties == nil {
		out.Type = "object"
	}
	return out, nil
}

// overlay returns a copy of the keywords a definition applies, or nil.
func (in *inferrer) overlay(name string) *schema.Schema {
	if s, ok := in.overlays[name]; ok {
		return s.Clone()
	}
	if def, ok := in.defs.Get(name); ok {
		return def.Schema.Clone()
	}
	return nil
}

type scope struct {
	node     *schema.Schema
	required []string
	deps     *schema.Dependencies
}

func (sc *scope) require(name string) {
	if !contains(sc.required, name) {
		sc.required = append(sc.required, name)
	}
}

func (sc *scope) unrequire(name string) {
	sc.required = remove(sc.required, name)
}

func (sc *scope) depend(name string, guards ...string) {
	list, _ := sc.deps.Get(name)
	for _, guard := range guards {
		if !contains(list, guard) {
			list = append(list, guard)
		}
	}
	sc.deps.Set(name, list)
}

func (in *inferrer) walk(tokens []mst.Token) (*schema.Schema, error) {
	sc := &scope{
		node: &schema.Schema{Type: "object", Properties: schema.NewProperties()},
		deps: schema.NewDependencies(),
	}
	for _, tok := range tokens {
		var err error
		switch tok.Kind {
		case mst.KindVariable:
			err = in.variable(sc, tok)
		case mst.KindSection:
			err = in.section(sc, tok)
		case mst.KindInverted:
			err = in.inverted(sc, tok)
		case mst.KindPartial:
			err = in.includePartial(sc, tok)
		}
		if err != nil {
			return nil, err
		}
	}
	return in.finish(sc), nil
}

// external clones the library type a placeholder references and merges the
// library into the type definitions. It returns nil when the placeholder
// names no library.
func (in *inferrer) external(ref mst.Ref) (*schema.Schema, error) {
	if ref.Schema == "" {
		return nil, nil
	}
	lib, ok := in.libraries[ref.Schema]
	if !ok {
		return nil, structuralf(ref.Name, "Failed to find the specified schema: %s", ref.Schema)
	}
	def, ok := lib.Definition(ref.Type)
	if !ok {
		return nil, structuralf(ref.Name, "No definition for %s in %s schema", ref.Type, ref.Schema)
	}
	defs := lib.Definitions()
	for pair := defs.Oldest(); pair != nil; pair = pair.Next() {
		in.typeDefs.Set(pair.Key, pair.Value.Clone())
	}
	return def.Clone(), nil
}

func (in *inferrer) variable(sc *scope, tok mst.Token) error {
	ref := mst.ParseRef(tok.Name)
	prop, err := in.external(ref)
	if err != nil {
		return err
	}
	if prop == nil {
		kind := ref.Type
		if kind == "" {
			kind = "string"
		}
		build, ok := primitives[kind]
		if !ok {
			return structuralf(ref.Name, "No schema definition for %s", kind)
		}
		prop = build()
	}
	prop.Overlay(in.overlay(ref.Name))

	if prop.Format == "info" && prop.Const == nil {
		prop.Const = ""
	}
	if prop.MathExpression != "" && prop.Format == "" {
		prop.Format = "hidden"
	}
	sc.node.SetProperty(ref.Name, prop)

	optional := prop.Format == "hidden" || prop.Format == "info" ||
		prop.MathExpression != "" || prop.Default != nil
	if !optional {
		sc.require(ref.Name)
	}

	if prop.MathExpression == "" {
		return nil
	}
	idents, err := expressionIdentifiers(prop.MathExpression)
	if err != nil {
		return structuralf(ref.Name, "invalid mathExpression for %s: %v", ref.Name, err)
	}
	for pair := in.typeDefs.Oldest(); pair != nil; pair = pair.Next() {
		if !contains(idents, pair.Key) || sc.node.HasProperty(pair.Key) {
			continue
		}
		sc.node.SetProperty(pair.Key, pair.Value.Clone())
		sc.require(pair.Key)
	}
	return nil
}

// sectionDef is the schema an author attached to a section or inverted
// section name, through a type annotation, a definition, or both.
func (in *inferrer) sectionDef(ref mst.Ref) *schema.Schema {
	out := &schema.Schema{}
	if ref.Type != "" {
		if typed, ok := in.typeDefs.Get(ref.Type); ok {
			out = typed.Clone()
		}
	}
	out.Overlay(in.overlay(ref.Name))
	return out
}

func (in *inferrer) section(sc *scope, tok mst.Token) error {
	ref := mst.ParseRef(tok.Name)
	if _, err := in.external(ref); err != nil {
		return err
	}
	items, err := in.walk(tok.Children)
	if err != nil {
		return err
	}
	def := in.sectionDef(ref)
	kind := def.Type
	if kind == "" {
		kind = "array"
	}
	prop := &schema.Schema{Type: kind}
	prop.Overlay(def)

	switch kind {
	case "array":
		prop.SkipXform = true
		prop.Items = overlayItems(items, def.Items)
		if existing := sc.node.Property(ref.Name); existing != nil && existing.Type == "array" && existing.Items != nil {
			merged, err := mergeSectionItems(ref.Name, existing.Items, prop.Items)
			if err != nil {
				return err
			}
			prop.Items = merged
		}
	case "object":
		prop.SkipXform = true
		prop.Overlay(items)
	case "boolean", "string":
		mergeSchemaInto(sc, items)
		if prop.Default == nil {
			if kind == "boolean" {
				prop.Default = false
			} else {
				prop.Default = ""
			}
		}
	default:
		return structuralf(ref.Name, "unsupported type for section %q: %s", ref.Name, kind)
	}

	for _, name := range items.PropertyNames() {
		in.addDependency(sc, name, ref.Name)
	}
	sc.node.SetProperty(ref.Name, prop)
	if def.Default == nil {
		sc.require(ref.Name)
	}
	return nil
}

func (in *inferrer) inverted(sc *scope, tok mst.Token) error {
	ref := mst.ParseRef(tok.Name)
	if _, err := in.external(ref); err != nil {
		return err
	}
	items, err := in.walk(tok.Children)
	if err != nil {
		return err
	}
	if !sc.node.HasProperty(ref.Name) {
		prop := &schema.Schema{Type: "boolean", Default: false}
		prop.Overlay(in.sectionDef(ref))
		sc.node.SetProperty(ref.Name, prop)
	}

	for _, name := range items.PropertyNames() {
		in.addDependency(sc, name, ref.Name)
		if def, ok := in.defs.Get(name); ok && def.HasExplicitInvertDependency() {
			continue
		}
		item := items.Property(name)
		if !contains(item.InvertDependency, ref.Name) {
			item.InvertDependency = append(item.InvertDependency, ref.Name)
		}
	}

	sc.unrequire(ref.Name)
	sc.node.Property(ref.Name).Overlay(in.overlay(ref.Name))
	mergeSchemaInto(sc, items)
	return nil
}

func (in *inferrer) includePartial(sc *scope, tok mst.Token) error {
	ref := mst.ParseRef(tok.Name)
	if _, err := in.external(ref); err != nil {
		return err
	}
	def, ok := in.defs.Get(ref.Name)
	if !ok || def.Partial == "" {
		return structuralf(ref.Name, "%s does not reference a known partial", ref.Name)
	}
	partial, err := in.partial(def)
	if err != nil {
		return err
	}
	mergeSchemaInto(sc, partial)
	for _, name := range partial.Required {
		sc.require(name)
	}
	return nil
}

// partial compiles a partial definition once and records its schema as the
// type definition of the same name.
func (in *inferrer) partial(def *schema.Definition) (*schema.Schema, error) {
	if s, ok := in.partials[def.Name]; ok {
		return s, nil
	}
	if in.compiling[def.Name] {
		return nil, structuralf(def.Name, "partial %s includes itself", def.Name)
	}
	in.compiling[def.Name] = true
	defer delete(in.compiling, def.Name)

	tokens, err := mst.Parse(def.Partial)
	if err != nil {
		return nil, fmt.Errorf("template: partial %s: %w", def.Name, err)
	}
	s, err := in.walk(tokens)
	if err != nil {
		return nil, err
	}
	in.partials[def.Name] = s
	in.typeDefs.Set(def.Name, s.Clone())
	return s, nil
}

// addDependency records that an item inside a section applies only when the
// section guard is set. An explicit list on the item's definition wins.
func (in *inferrer) addDependency(sc *scope, name, guard string) {
	if def, ok := in.defs.Get(name); ok && def.HasExplicitDependencies() {
		sc.deps.Set(name, append([]string(nil), def.Dependencies...))
		return
	}
	sc.depend(name, guard)
}

// mergeSchemaInto hoists the properties of a nested scope into sc. A
// boolean never replaces an array or string of the same name.
func mergeSchemaInto(sc *scope, src *schema.Schema) {
	if src == nil {
		return
	}
	for _, name := range src.PropertyNames() {
		prop := src.Property(name)
		if cur := sc.node.Property(name); cur != nil && (cur.Type == "array" || cur.Type == "string") && prop.Type == "boolean" {
			continue
		}
		sc.node.SetProperty(name, prop.Clone())
	}
	if src.Dependencies == nil {
		return
	}
	for pair := src.Dependencies.Oldest(); pair != nil; pair = pair.Next() {
		sc.depend(pair.Key, pair.Value...)
	}
}

// overlayItems applies an author `items` definition onto inferred items.
// Properties are overlaid one by one, and an item property given a default
// stops being required.
func overlayItems(items, defItems *schema.Schema) *schema.Schema {
	out := items.Clone()
	if defItems == nil {
		return out
	}
	over := defItems.Clone()
	props := over.Properties
	over.Properties = nil
	out.Overlay(over)
	if props == nil {
		return out
	}
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		if cur := out.Property(pair.Key); cur != nil {
			cur.Overlay(pair.Value)
		} else {
			out.SetProperty(pair.Key, pair.Value)
		}
		if pair.Value.Default != nil {
			out.Required = remove(out.Required, pair.Key)
		}
	}
	return out
}

// mergeSectionItems combines the items of a section opened twice.
func mergeSectionItems(name string, existing, next *schema.Schema) (*schema.Schema, error) {
	hasProps := func(s *schema.Schema) bool { return s.Properties != nil && s.Properties.Len() > 0 }
	if hasProps(existing) != hasProps(next) {
		return nil, structuralf(name, "attempted to redefine section %q with an incompatible shape", name)
	}
	if !hasProps(next) {
		return next, nil
	}
	out := existing.Clone()
	for _, prop := range next.PropertyNames() {
		out.SetProperty(prop, next.Property(prop).Clone())
	}
	for _, req := range next.Required {
		if !contains(out.Required, req) {
			out.Required = append(out.Required, req)
		}
	}
	if next.Dependencies != nil {
		if out.Dependencies == nil {
			out.Dependencies = schema.NewDependencies()
		}
		for pair := next.Dependencies.Oldest(); pair != nil; pair = pair.Next() {
			list, _ := out.Dependencies.Get(pair.Key)
			for _, guard := range pair.Value {
				if !contains(list, guard) {
					list = append(list, guard)
				}
			}
			out.Dependencies.Set(pair.Key, list)
		}
	}
	return out, nil
}

// finish orders properties, prunes dependencies of required properties and
// collapses scopes that only reference `.` or nothing at all.
func (in *inferrer) finish(sc *scope) *schema.Schema {
	node := sc.node
	switch {
	case node.Properties.Len() == 1 && node.HasProperty("."):
		return &schema.Schema{Type: "string"}
	case node.Properties.Len() == 0:
		return &schema.Schema{Type: "string", Default: ""}
	}

	names := node.PropertyNames()
	sort.SliceStable(names, func(i, j int) bool {
		return in.position(names[i]) < in.position(names[j])
	})
	ordered := schema.NewProperties()
	for _, name := range names {
		ordered.Set(name, node.Property(name))
	}
	node.Properties = ordered

	for _, req := range sc.required {
		sc.deps.Delete(req)
	}
	node.Required = append(make([]string, 0, len(sc.required)), sc.required...)
	if sc.deps.Len() > 0 {
		node.Dependencies = sc.deps
	}
	return node
}

func (in *inferrer) position(name string) int {
	if def, ok := in.defs.Get(name); ok {
		return def.Index
	}
	return unindexed
}

func contains(list []string, name string) bool {
	for _, item := range list {
		if item == name {
			return true
		}
	}
	return false
}

func remove(list []string, name string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != name {
			out = append(out, item)
		}
	}
	return out
}
