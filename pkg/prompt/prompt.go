// Package prompt collects template parameters interactively, one question per
// property of a parameters schema.
package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/jsonc"

	"github.com/goliatone/go-tmplschema/pkg/schema"
)

const defaultMaxItems = 20

// Collector walks a parameters schema and asks for a value per property.
type Collector struct {
	driver   Driver
	logger   zerolog.Logger
	maxItems int
}

// New builds a Collector. Without WithDriver it talks to the terminal.
func New(opts ...Option) *Collector {
	c := &Collector{
		driver:   NewSurveyDriver(),
		logger:   zerolog.Nop(),
		maxItems: defaultMaxItems,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// Collect prompts for every visible property of s. Values in defaults seed
// the answers and are kept for properties that are never asked, such as
// hidden ones or those whose dependencies are unset.
func (c *Collector) Collect(ctx context.Context, s *schema.Schema, defaults map[string]any) (map[string]any, error) {
	if ctx == nil {
		return nil, errors.New("prompt: context is required")
	}
	if c.driver == nil {
		return nil, ErrNoDriver
	}
	out, _ := schema.CopyValue(defaults).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	if err := c.object(ctx, s, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Collector) object(ctx context.Context, s *schema.Schema, prefix string, out map[string]any) error {
	for _, name := range order(s) {
		if err := ctx.Err(); err != nil {
			return err
		}
		prop := s.Property(name)
		if !c.visible(s, name, prop, out) {
			continue
		}
		path := prefix + name
		current, has := out[name]
		if !has {
			current = prop.Default
		}

		value, set, err := c.field(ctx, path, name, prop, s.IsRequired(name), current)
		if err != nil {
			return err
		}
		if set {
			out[name] = value
		} else {
			delete(out, name)
		}
		c.logger.Debug().Str("property", path).Bool("set", set).Msg("prompt answered")
	}
	return nil
}

// visible reports whether a property should be asked about given the answers
// collected so far.
func (c *Collector) visible(parent *schema.Schema, name string, prop *schema.Schema, answers map[string]any) bool {
	if prop == nil || prop.Format == "hidden" || prop.Format == "info" || prop.MathExpression != "" || prop.Const != nil {
		return false
	}
	if parent.Dependencies != nil {
		if deps, ok := parent.Dependencies.Get(name); ok {
			for _, dep := range deps {
				if !truthy(answers[dep]) {
					return false
				}
			}
		}
	}
	for _, dep := range prop.InvertDependency {
		if truthy(answers[dep]) {
			return false
		}
	}
	return true
}

// order lists the properties of s so every dependency guard is asked before
// the properties it guards.
func order(s *schema.Schema) []string {
	names := s.PropertyNames()
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	var visit func(name string)
	visit = func(name string) {
		if seen[name] || !s.HasProperty(name) {
			return
		}
		seen[name] = true
		if s.Dependencies != nil {
			if deps, ok := s.Dependencies.Get(name); ok {
				for _, dep := range deps {
					visit(dep)
				}
			}
		}
		for _, dep := range s.Property(name).InvertDependency {
			visit(dep)
		}
		out = append(out, name)
	}
	for _, name := range names {
		visit(name)
	}
	return out
}

func (c *Collector) field(ctx context.Context, path, name string, prop *schema.Schema, required bool, current any) (any, bool, error) {
	switch prop.Type {
	case "boolean":
		def, _ := current.(bool)
		v, err := c.driver.Confirm(ctx, ConfirmConfig{Message: label(name, prop), Default: def, Help: help(prop)})
		return v, err == nil, err
	case "integer", "number":
		return c.number(ctx, path, name, prop, required, current)
	case "array":
		return c.array(ctx, path, name, prop, required, current)
	case "object":
		if prop.Properties != nil && prop.Properties.Len() > 0 {
			nested, _ := schema.CopyValue(current).(map[string]any)
			if nested == nil {
				nested = map[string]any{}
			}
			if err := c.object(ctx, prop, path+".", nested); err != nil {
				return nil, false, err
			}
			return nested, true, nil
		}
		return c.jsonValue(ctx, path, name, prop, required, current)
	default:
		if len(prop.Enum) > 0 {
			return c.enum(ctx, path, name, prop, current)
		}
		return c.text(ctx, path, name, prop, required, current)
	}
}

func (c *Collector) text(ctx context.Context, path, name string, prop *schema.Schema, required bool, current any) (any, bool, error) {
	def := ""
	if current != nil {
		def = fmt.Sprint(current)
	}
	for {
		var (
			resp string
			err  error
		)
		switch prop.Format {
		case "password":
			resp, err = c.driver.Password(ctx, InputConfig{Message: label(name, prop), Default: def, Help: help(prop)})
		case "text":
			resp, err = c.driver.TextArea(ctx, TextAreaConfig{Message: label(name, prop), Default: def, Help: help(prop)})
		default:
			resp, err = c.driver.Input(ctx, InputConfig{Message: label(name, prop), Default: def, Help: help(prop)})
		}
		if err != nil {
			return nil, false, err
		}
		if resp == "" && !required {
			return nil, false, nil
		}
		if err := checkString(prop, resp, required); err != nil {
			c.invalid(ctx, path, err)
			continue
		}
		return resp, true, nil
	}
}

func (c *Collector) enum(ctx context.Context, path, name string, prop *schema.Schema, current any) (any, bool, error) {
	options := stringify(prop.Enum)
	def := -1
	if current != nil {
		def = indexOf(options, fmt.Sprint(current))
	}
	for {
		idx, err := c.driver.Select(ctx, SelectConfig{
			Message:      label(name, prop),
			Options:      options,
			DefaultIndex: def,
			Help:         help(prop),
		})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(options) {
			c.invalid(ctx, path, errors.New("unknown selection"))
			continue
		}
		return schema.CopyValue(prop.Enum[idx]), true, nil
	}
}

func (c *Collector) number(ctx context.Context, path, name string, prop *schema.Schema, required bool, current any) (any, bool, error) {
	def := ""
	if current != nil {
		def = fmt.Sprint(current)
	}
	for {
		resp, err := c.driver.Input(ctx, InputConfig{Message: label(name, prop), Default: def, Help: help(prop)})
		if err != nil {
			return nil, false, err
		}
		resp = strings.TrimSpace(resp)
		if resp == "" {
			if !required {
				return nil, false, nil
			}
			c.invalid(ctx, path, errors.New("required"))
			continue
		}
		v, err := parseNumber(prop.Type, resp)
		if err == nil {
			err = checkNumber(prop, v)
		}
		if err != nil {
			c.invalid(ctx, path, err)
			continue
		}
		return v, true, nil
	}
}

func (c *Collector) array(ctx context.Context, path, name string, prop *schema.Schema, required bool, current any) (any, bool, error) {
	items := prop.Items
	if items == nil {
		items = &schema.Schema{Type: "string"}
	}
	existing, _ := current.([]any)

	if len(items.Enum) > 0 {
		options := stringify(items.Enum)
		defaults := indicesOf(options, stringify(existing))
		idx, err := c.driver.MultiSelect(ctx, SelectConfig{
			Message:  label(name, prop),
			Options:  options,
			Defaults: defaults,
			Help:     help(prop),
		})
		if err != nil {
			return nil, false, err
		}
		out := make([]any, 0, len(idx))
		for _, i := range idx {
			if i >= 0 && i < len(items.Enum) {
				out = append(out, schema.CopyValue(items.Enum[i]))
			}
		}
		return out, true, nil
	}

	if items.Type == "object" && items.Properties != nil {
		out := make([]any, 0)
		for len(out) < c.maxItems {
			more, err := c.driver.Confirm(ctx, ConfirmConfig{
				Message: fmt.Sprintf("Add an entry to %s?", label(name, prop)),
				Default: len(out) < len(existing),
				Help:    help(prop),
			})
			if err != nil {
				return nil, false, err
			}
			if !more {
				break
			}
			entry, _ := schema.CopyValue(at(existing, len(out))).(map[string]any)
			if entry == nil {
				entry = map[string]any{}
			}
			if err := c.object(ctx, items, fmt.Sprintf("%s[%d].", path, len(out)), entry); err != nil {
				return nil, false, err
			}
			out = append(out, entry)
		}
		return out, true, nil
	}

	def := strings.Join(stringify(existing), ", ")
	for {
		resp, err := c.driver.Input(ctx, InputConfig{
			Message: label(name, prop) + " (comma separated)",
			Default: def,
			Help:    help(prop),
		})
		if err != nil {
			return nil, false, err
		}
		if strings.TrimSpace(resp) == "" && !required {
			return []any{}, true, nil
		}
		out, err := parseList(items, resp)
		if err == nil {
			err = checkItems(prop, out)
		}
		if err != nil {
			c.invalid(ctx, path, err)
			continue
		}
		return out, true, nil
	}
}

func (c *Collector) jsonValue(ctx context.Context, path, name string, prop *schema.Schema, required bool, current any) (any, bool, error) {
	def := ""
	if current != nil {
		raw, err := json.MarshalIndent(current, "", "  ")
		if err == nil {
			def = string(raw)
		}
	}
	for {
		resp, err := c.driver.TextArea(ctx, TextAreaConfig{Message: label(name, prop) + " (JSON)", Default: def, Help: help(prop)})
		if err != nil {
			return nil, false, err
		}
		if strings.TrimSpace(resp) == "" && !required {
			return nil, false, nil
		}
		var v any
		if err := json.Unmarshal(jsonc.ToJSON([]byte(resp)), &v); err != nil {
			c.invalid(ctx, path, err)
			continue
		}
		return v, true, nil
	}
}

func (c *Collector) invalid(ctx context.Context, path string, err error) {
	c.logger.Debug().Str("property", path).Err(err).Msg("prompt rejected")
	_ = c.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", path, err))
}

func label(name string, prop *schema.Schema) string {
	if prop.Title != nil && *prop.Title != "" {
		return *prop.Title
	}
	return name
}

func help(prop *schema.Schema) string {
	if prop.Description != nil {
		return *prop.Description
	}
	return ""
}

func checkString(prop *schema.Schema, v string, required bool) error {
	if required && v == "" {
		return errors.New("required")
	}
	n := uint64(len([]rune(v)))
	if prop.MinLength != nil && n < *prop.MinLength {
		return fmt.Errorf("must be at least %d characters", *prop.MinLength)
	}
	if prop.MaxLength != nil && n > *prop.MaxLength {
		return fmt.Errorf("must be at most %d characters", *prop.MaxLength)
	}
	if prop.Pattern != "" {
		re, err := regexp.Compile(prop.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", prop.Pattern, err)
		}
		if !re.MatchString(v) {
			return fmt.Errorf("must match %s", prop.Pattern)
		}
	}
	return nil
}

func checkNumber(prop *schema.Schema, v any) error {
	var f float64
	switch n := v.(type) {
	case int64:
		f = float64(n)
	case float64:
		f = n
	}
	if prop.Minimum != nil {
		if f < *prop.Minimum || (prop.ExclusiveMinimum && f == *prop.Minimum) {
			return fmt.Errorf("must be >= %v", *prop.Minimum)
		}
	}
	if prop.Maximum != nil {
		if f > *prop.Maximum || (prop.ExclusiveMaximum && f == *prop.Maximum) {
			return fmt.Errorf("must be <= %v", *prop.Maximum)
		}
	}
	return nil
}

func checkItems(prop *schema.Schema, items []any) error {
	n := uint64(len(items))
	if prop.MinItems != nil && n < *prop.MinItems {
		return fmt.Errorf("needs at least %d items", *prop.MinItems)
	}
	if prop.MaxItems != nil && n > *prop.MaxItems {
		return fmt.Errorf("allows at most %d items", *prop.MaxItems)
	}
	return nil
}

func parseNumber(typ, s string) (any, error) {
	if typ == "integer" {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func parseList(items *schema.Schema, s string) ([]any, error) {
	out := make([]any, 0)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch items.Type {
		case "integer", "number":
			v, err := parseNumber(items.Type, part)
			if err != nil {
				return nil, err
			}
			if err := checkNumber(items, v); err != nil {
				return nil, err
			}
			out = append(out, v)
		case "boolean":
			v, err := strconv.ParseBool(part)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		default:
			if err := checkString(items, part, false); err != nil {
				return nil, err
			}
			out = append(out, part)
		}
	}
	return out, nil
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case float64:
		return val != 0
	case int64:
		return val != 0
	default:
		return true
	}
}

func stringify(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func at(list []any, i int) any {
	if i < len(list) {
		return list[i]
	}
	return nil
}
