// Package mst tokenizes annotated Mustache template text.
//
// Placeholders may carry a type annotation after the name
// (`{{name:schemaName:typeName}}` or `{{name::typeName}}`). The annotation is
// kept on the token so schema inference can read it; StripAnnotations removes
// it before the text is handed to the substitution engine.
package mst

import (
	"fmt"
	"strings"
)

// Kind identifies the token variant.
type Kind int

const (
	KindText Kind = iota
	KindComment
	KindVariable
	KindSection
	KindInverted
	KindPartial
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindComment:
		return "comment"
	case KindVariable:
		return "variable"
	case KindSection:
		return "section"
	case KindInverted:
		return "inverted"
	case KindPartial:
		return "partial"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token is one element of a parsed template. Section and inverted tokens
// carry their nested tokens in Children; the closing tag is represented by
// CloseStart/CloseEnd rather than by a separate token.
type Token struct {
	Kind Kind
	// Name is the raw tag name, including any `:schema:type` annotation.
	Name string
	// Value holds literal text for KindText and the trimmed body of a comment.
	Value string
	// Unescaped marks `{{{name}}}` and `{{&name}}` variables.
	Unescaped bool

	Start int
	End   int
	// CloseStart and CloseEnd locate the closing tag of a section.
	CloseStart int
	CloseEnd   int

	Line   int
	Column int

	// Standalone reports that the tag is the only non-blank content on its
	// line. Indent is the whitespace preceding a standalone tag.
	Standalone bool
	Indent     string

	Children []Token
}

// Ref is a placeholder name split into its annotation parts.
type Ref struct {
	Name   string
	Schema string
	Type   string
}

// ParseRef splits `name[:schemaName:typeName]`. Segments past the third are
// ignored.
func ParseRef(raw string) Ref {
	parts := strings.Split(raw, ":")
	ref := Ref{Name: parts[0]}
	if len(parts) > 1 {
		ref.Schema = parts[1]
	}
	if len(parts) > 2 {
		ref.Type = parts[2]
	}
	return ref
}

// Annotated reports whether the reference carried a type annotation.
func (r Ref) Annotated() bool {
	return r.Schema != "" || r.Type != ""
}

// ParseError reports malformed template syntax.
type ParseError struct {
	Line    int
	Column  int
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mst: %s (line %d, column %d)", e.Message, e.Line, e.Column)
}

// Walk visits tokens depth first. Returning false from fn skips the
// children of the visited token.
func Walk(tokens []Token, fn func(tok Token) bool) {
	for _, tok := range tokens {
		if !fn(tok) {
			continue
		}
		if len(tok.Children) > 0 {
			Walk(tok.Children, fn)
		}
	}
}

// FirstComment returns the trimmed body of the first top-level comment.
func FirstComment(tokens []Token) (string, bool) {
	for _, tok := range tokens {
		if tok.Kind == KindComment {
			return strings.TrimSpace(tok.Value), true
		}
	}
	return "", false
}
