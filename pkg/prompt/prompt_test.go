package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-tmplschema/pkg/schema"
	"github.com/goliatone/go-tmplschema/pkg/template"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	passwords    []string
	infoMessages []string
	messages     []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
	passPos      int
	err          error
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.messages = append(s.messages, cfg.Message)
	if s.err != nil {
		return "", s.err
	}
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, _ InputConfig) (string, error) {
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.messages = append(s.messages, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, _ SelectConfig) ([]int, error) {
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func mustSchema(t *testing.T, raw string) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	return s
}

func TestCollect_Scalars(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"web", "0", "8443"},
		selectIdx: []int{1},
		confirm:   []bool{true},
		passwords: []string{"s3cret"},
	}
	s := mustSchema(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "title": "Service name"},
			"tier": {"type": "string", "enum": ["small", "large"]},
			"tls": {"type": "boolean"},
			"port": {"type": "integer", "minimum": 1, "maximum": 65535},
			"secret": {"type": "string", "format": "password"},
			"mode": {"type": "string", "format": "hidden", "default": "x"}
		},
		"required": ["name", "port"]
	}`)

	got, err := New(WithDriver(driver)).Collect(context.Background(), s, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := map[string]any{
		"name":   "web",
		"tier":   "large",
		"tls":    true,
		"port":   int64(8443),
		"secret": "s3cret",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Invalid port: must be >= 1"}, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
	if driver.messages[0] != "Service name" {
		t.Fatalf("expected title as prompt label, got %q", driver.messages[0])
	}
}

func TestCollect_OptionalLeftEmpty(t *testing.T) {
	driver := &stubDriver{inputs: []string{"", ""}}
	s := mustSchema(t, `{
		"type": "object",
		"properties": {
			"note": {"type": "string"},
			"count": {"type": "number"}
		}
	}`)

	got, err := New(WithDriver(driver)).Collect(context.Background(), s, map[string]any{"note": "old"})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty answers to drop the values, got %#v", got)
	}
}

func TestCollect_RequiredStringRepeats(t *testing.T) {
	driver := &stubDriver{inputs: []string{"", "ab", "abc"}}
	s := mustSchema(t, `{
		"type": "object",
		"properties": {"code": {"type": "string", "minLength": 3}},
		"required": ["code"]
	}`)

	got, err := New(WithDriver(driver)).Collect(context.Background(), s, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got["code"] != "abc" || len(driver.infoMessages) != 2 {
		t.Fatalf("unexpected result %#v, info %v", got, driver.infoMessages)
	}
}

func TestCollect_DependenciesAskGuardFirst(t *testing.T) {
	s := mustSchema(t, `{
		"type": "object",
		"properties": {
			"cert": {"type": "string"},
			"plain": {"type": "string", "invertDependency": ["use_tls"]},
			"use_tls": {"type": "boolean"}
		},
		"dependencies": {"cert": ["use_tls"]}
	}`)

	driver := &stubDriver{confirm: []bool{false}, inputs: []string{"yes"}}
	got, err := New(WithDriver(driver)).Collect(context.Background(), s, map[string]any{"cert": "kept"})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := map[string]any{"use_tls": false, "plain": "yes", "cert": "kept"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	driver = &stubDriver{confirm: []bool{true}, inputs: []string{"pem"}}
	got, err = New(WithDriver(driver)).Collect(context.Background(), s, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want = map[string]any{"use_tls": true, "cert": "pem"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_Arrays(t *testing.T) {
	driver := &stubDriver{
		inputs:   []string{"a, b ,c", "80,443", "h1"},
		multiIdx: [][]int{{0, 2}},
		confirm:  []bool{true, false},
	}
	s := mustSchema(t, `{
		"type": "object",
		"properties": {
			"tags": {"type": "array", "items": {"type": "string"}},
			"ports": {"type": "array", "items": {"type": "integer"}},
			"zones": {"type": "array", "items": {"type": "string", "enum": ["a", "b", "c"]}},
			"servers": {
				"type": "array",
				"items": {"type": "object", "properties": {"host": {"type": "string"}}, "required": ["host"]}
			}
		}
	}`)

	got, err := New(WithDriver(driver)).Collect(context.Background(), s, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := map[string]any{
		"tags":    []any{"a", "b", "c"},
		"ports":   []any{int64(80), int64(443)},
		"zones":   []any{"a", "c"},
		"servers": []any{map[string]any{"host": "h1"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_ArrayMaxItems(t *testing.T) {
	driver := &stubDriver{
		inputs:  []string{"h1", "h2"},
		confirm: []bool{true, true, true},
	}
	s := mustSchema(t, `{
		"type": "object",
		"properties": {
			"servers": {"type": "array", "items": {"type": "object", "properties": {"host": {"type": "string"}}}}
		}
	}`)

	got, err := New(WithDriver(driver), WithMaxItems(2)).Collect(context.Background(), s, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if servers := got["servers"].([]any); len(servers) != 2 || driver.confirmPos != 2 {
		t.Fatalf("expected two entries, got %#v", got["servers"])
	}
}

func TestCollect_ObjectAsJSON(t *testing.T) {
	driver := &stubDriver{textAreas: []string{"{", "/* extra */ {\"a\": 1}"}}
	s := mustSchema(t, `{
		"type": "object",
		"properties": {"extra": {"type": "object"}}
	}`)

	got, err := New(WithDriver(driver)).Collect(context.Background(), s, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"extra": map[string]any{"a": float64(1)}}, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if len(driver.infoMessages) != 1 {
		t.Fatalf("expected one rejection, got %v", driver.infoMessages)
	}
}

func TestCollect_Aborted(t *testing.T) {
	driver := &stubDriver{err: ErrAborted}
	s := mustSchema(t, `{"type": "object", "properties": {"name": {"type": "string"}}}`)

	if _, err := New(WithDriver(driver)).Collect(context.Background(), s, nil); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestCollect_TemplateParameters(t *testing.T) {
	tmpl, err := template.LoadYAML(context.Background(), `
definitions:
  use_tls:
    type: boolean
template: "{{name}}{{#use_tls}} {{cert}}{{/use_tls}}"
`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	driver := &stubDriver{confirm: []bool{true}, inputs: []string{"web", "pem"}}
	params, err := New(WithDriver(driver)).Collect(context.Background(), tmpl.ParametersSchema(), nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	out, err := tmpl.Render(params)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "web pem" {
		t.Fatalf("unexpected output %q", out)
	}
}
