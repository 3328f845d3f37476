package structured

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EncodeJSON writes the node as JSON. indent is the number of spaces per
// level; zero writes compact JSON. HTML characters are not escaped.
func EncodeJSON(n *yaml.Node, indent int) ([]byte, error) {
	w := &jsonWriter{indent: indent}
	if err := w.write(resolve(n), 0); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

type jsonWriter struct {
	buf    bytes.Buffer
	indent int
}

func (w *jsonWriter) newline(depth int) {
	if w.indent == 0 {
		return
	}
	w.buf.WriteByte('\n')
	w.buf.WriteString(strings.Repeat(" ", depth*w.indent))
}

func (w *jsonWriter) write(n *yaml.Node, depth int) error {
	n = resolve(n)
	if n == nil {
		w.buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case yaml.MappingNode:
		if len(n.Content) == 0 {
			w.buf.WriteString("{}")
			return nil
		}
		w.buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.newline(depth + 1)
			w.str(resolve(n.Content[i]).Value)
			w.buf.WriteByte(':')
			if w.indent > 0 {
				w.buf.WriteByte(' ')
			}
			if err := w.write(n.Content[i+1], depth+1); err != nil {
				return err
			}
		}
		w.newline(depth)
		w.buf.WriteByte('}')
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			w.buf.WriteString("[]")
			return nil
		}
		w.buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.newline(depth + 1)
			if err := w.write(item, depth+1); err != nil {
				return err
			}
		}
		w.newline(depth)
		w.buf.WriteByte(']')
	case yaml.ScalarNode:
		return w.scalar(n)
	default:
		return fmt.Errorf("structured: unsupported node kind %d", n.Kind)
	}
	return nil
}

func (w *jsonWriter) scalar(n *yaml.Node) error {
	switch n.ShortTag() {
	case tagNull:
		w.buf.WriteString("null")
	case tagBool:
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		w.buf.WriteString(strconv.FormatBool(b))
	case tagInt:
		var i int64
		if err := n.Decode(&i); err == nil {
			w.buf.WriteString(strconv.FormatInt(i, 10))
			return nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		w.float(f)
	case tagFloat:
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		w.float(f)
	default:
		w.str(n.Value)
	}
	return nil
}

func (w *jsonWriter) float(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		w.buf.WriteString("null")
		return
	}
	w.buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
}

func (w *jsonWriter) str(s string) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	w.buf.Write(bytes.TrimSuffix(b.Bytes(), []byte("\n")))
}

// EncodeYAML writes the node as a block style YAML document with two space
// indentation.
func EncodeYAML(n *yaml.Node) ([]byte, error) {
	n = clone(n)
	if n == nil {
		n = nullNode()
	}
	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, fmt.Errorf("structured: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("structured: encode yaml: %w", err)
	}
	return b.Bytes(), nil
}

// MergeJSON merges two JSON (or YAML) texts and writes the result as
// indented JSON.
func MergeJSON(acc, curr []byte) ([]byte, error) {
	a, b, err := parsePair(acc, curr)
	if err != nil {
		return nil, err
	}
	return EncodeJSON(Merge(a, b), 2)
}

// MergeYAML merges two YAML texts and writes the result as YAML.
func MergeYAML(acc, curr []byte) ([]byte, error) {
	a, b, err := parsePair(acc, curr)
	if err != nil {
		return nil, err
	}
	return EncodeYAML(Merge(a, b))
}

func parsePair(acc, curr []byte) (*yaml.Node, *yaml.Node, error) {
	a, err := Parse(acc)
	if err != nil {
		return nil, nil, err
	}
	b, err := Parse(curr)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// ReformatJSON re-parses rendered text and writes it as indented JSON.
func ReformatJSON(text []byte) ([]byte, error) {
	n, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return EncodeJSON(n, 2)
}

// ReformatYAML re-parses rendered text and dumps it as YAML.
func ReformatYAML(text []byte) ([]byte, error) {
	n, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return EncodeYAML(n)
}
