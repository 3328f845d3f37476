// Package structured parses, merges and re-serializes JSON and YAML
// documents as yaml.Node trees so key order survives every step.
package structured

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-tmplschema/pkg/schema"
)

const (
	tagNull  = "!!null"
	tagBool  = "!!bool"
	tagInt   = "!!int"
	tagFloat = "!!float"
	tagStr   = "!!str"
	tagMap   = "!!map"
	tagSeq   = "!!seq"
)

// Parse reads JSON text, falling back to YAML for anything the JSON
// decoder rejects. The returned node is never a document node.
func Parse(data []byte) (*yaml.Node, error) {
	if node, err := ParseJSON(data); err == nil {
		return node, nil
	}
	return ParseYAML(data)
}

// ParseYAML reads a single YAML document. An empty document yields a null
// scalar.
func ParseYAML(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("structured: parse yaml: %w", err)
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0], nil
	}
	if doc.Kind == 0 {
		return nullNode(), nil
	}
	return &doc, nil
}

// ParseJSON reads a single JSON value into a node tree.
func ParseJSON(data []byte) (*yaml.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	node, err := decodeJSON(dec)
	if err != nil {
		return nil, fmt.Errorf("structured: parse json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("structured: parse json: trailing data")
	}
	return node, nil
}

func decodeJSON(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			node := &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				value, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				node.Content = append(node.Content, StringNode(key), value)
			}
			_, err := dec.Token()
			return node, err
		case '[':
			node := &yaml.Node{Kind: yaml.SequenceNode, Tag: tagSeq}
			for dec.More() {
				item, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				node.Content = append(node.Content, item)
			}
			_, err := dec.Token()
			return node, err
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case nil:
		return nullNode(), nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagBool, Value: strconv.FormatBool(v)}, nil
	case json.Number:
		tag := tagFloat
		if _, err := v.Int64(); err == nil {
			tag = tagInt
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String()}, nil
	case string:
		return StringNode(v), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// StringNode returns a string scalar.
func StringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: s}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagNull, Value: "null"}
}

// Merge deep merges src into dst and returns the result. Mappings merge
// key by key, sequences concatenate, and any other pairing takes src.
// Neither input is modified.
func Merge(dst, src *yaml.Node) *yaml.Node {
	dst, src = resolve(dst), resolve(src)
	switch {
	case dst == nil:
		return clone(src)
	case src == nil:
		return clone(dst)
	case dst.Kind == yaml.MappingNode && src.Kind == yaml.MappingNode:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
		index := map[string]int{}
		for i := 0; i+1 < len(dst.Content); i += 2 {
			index[dst.Content[i].Value] = len(out.Content)
			out.Content = append(out.Content, clone(dst.Content[i]), clone(dst.Content[i+1]))
		}
		for i := 0; i+1 < len(src.Content); i += 2 {
			key := src.Content[i].Value
			if at, ok := index[key]; ok {
				out.Content[at+1] = Merge(out.Content[at+1], src.Content[i+1])
				continue
			}
			index[key] = len(out.Content)
			out.Content = append(out.Content, clone(src.Content[i]), clone(src.Content[i+1]))
		}
		return out
	case dst.Kind == yaml.SequenceNode && src.Kind == yaml.SequenceNode:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: tagSeq}
		for _, item := range dst.Content {
			out.Content = append(out.Content, clone(item))
		}
		for _, item := range src.Content {
			out.Content = append(out.Content, clone(item))
		}
		return out
	default:
		return clone(src)
	}
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && (n.Kind == yaml.AliasNode || n.Kind == yaml.DocumentNode) {
		if n.Kind == yaml.AliasNode {
			n = n.Alias
			continue
		}
		if len(n.Content) == 0 {
			return nil
		}
		n = n.Content[0]
	}
	return n
}

func clone(n *yaml.Node) *yaml.Node {
	n = resolve(n)
	if n == nil {
		return nil
	}
	out := &yaml.Node{
		Kind:  n.Kind,
		Style: n.Style &^ yaml.FlowStyle,
		Tag:   n.ShortTag(),
		Value: n.Value,
	}
	if len(n.Content) > 0 {
		out.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			out.Content[i] = clone(c)
		}
	}
	return out
}

// Decode converts a node into plain Go values with JSON number shapes.
func Decode(n *yaml.Node) (any, error) {
	n = resolve(n)
	if n == nil {
		return nil, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("structured: decode: %w", err)
	}
	return schema.NormalizeValue(v), nil
}

// YAMLToJSON converts a YAML document to compact JSON, keeping key order.
func YAMLToJSON(data []byte) ([]byte, error) {
	node, err := ParseYAML(data)
	if err != nil {
		return nil, err
	}
	return EncodeJSON(node, 0)
}
