package mst

import (
	"strings"
)

const (
	defaultOpen  = "{{"
	defaultClose = "}}"
)

type frame struct {
	token  Token
	parent []Token
}

type parser struct {
	src   string
	pos   int
	open  string
	close string

	line      int
	lineStart int
	scanned   int
}

// Parse tokenizes template text. Sections are nested: the returned slice only
// holds top-level tokens.
func Parse(text string) ([]Token, error) {
	p := &parser{
		src:   text,
		open:  defaultOpen,
		close: defaultClose,
		line:  1,
	}
	return p.parse()
}

// Validate reports whether text tokenizes cleanly.
func Validate(text string) error {
	_, err := Parse(text)
	return err
}

func (p *parser) parse() ([]Token, error) {
	var (
		tokens []Token
		stack  []frame
	)

	for p.pos < len(p.src) {
		idx := strings.Index(p.src[p.pos:], p.open)
		if idx < 0 {
			tokens = append(tokens, p.textToken(p.pos, len(p.src)))
			p.pos = len(p.src)
			break
		}
		start := p.pos + idx
		if start > p.pos {
			tokens = append(tokens, p.textToken(p.pos, start))
		}

		tok, kind, err := p.scanTag(start)
		if err != nil {
			return nil, err
		}

		switch kind {
		case tagDelimiters:
			// consumed by scanTag
		case tagClose:
			if len(stack) == 0 {
				return nil, p.errorAt(start, "unopened section \""+tok.Name+"\"")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.token.Name != tok.Name {
				return nil, p.errorAt(start, "unclosed section \""+top.token.Name+"\"")
			}
			section := top.token
			section.Children = tokens
			section.CloseStart = tok.Start
			section.CloseEnd = tok.End
			tokens = append(top.parent, section)
		case tagSection, tagInverted:
			stack = append(stack, frame{token: tok, parent: tokens})
			tokens = nil
		default:
			tokens = append(tokens, tok)
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return nil, p.errorAt(top.token.Start, "unclosed section \""+top.token.Name+"\"")
	}
	return tokens, nil
}

type tagKind int

const (
	tagVariable tagKind = iota
	tagComment
	tagSection
	tagInverted
	tagClose
	tagPartial
	tagDelimiters
)

func (p *parser) scanTag(start int) (Token, tagKind, error) {
	pos := start + len(p.open)
	pos = skipSpace(p.src, pos)

	var sigil byte
	if pos < len(p.src) && strings.IndexByte("#^/>!{&=", p.src[pos]) >= 0 {
		sigil = p.src[pos]
		pos++
		pos = skipSpace(p.src, pos)
	}

	closer := p.close
	switch sigil {
	case '{':
		closer = "}" + p.close
	case '=':
		closer = "=" + p.close
	}

	rel := strings.Index(p.src[pos:], closer)
	if rel < 0 {
		return Token{}, 0, p.errorAt(start, "unclosed tag")
	}
	value := strings.TrimSpace(p.src[pos : pos+rel])
	end := pos + rel + len(closer)

	line, col := p.location(start)
	tok := Token{
		Name:   value,
		Start:  start,
		End:    end,
		Line:   line,
		Column: col,
	}

	var kind tagKind
	switch sigil {
	case 0:
		kind = tagVariable
		tok.Kind = KindVariable
	case '{', '&':
		kind = tagVariable
		tok.Kind = KindVariable
		tok.Unescaped = true
	case '#':
		kind = tagSection
		tok.Kind = KindSection
	case '^':
		kind = tagInverted
		tok.Kind = KindInverted
	case '/':
		kind = tagClose
	case '>':
		kind = tagPartial
		tok.Kind = KindPartial
	case '!':
		kind = tagComment
		tok.Kind = KindComment
		tok.Value = value
		tok.Name = ""
	case '=':
		kind = tagDelimiters
		parts := strings.Fields(value)
		if len(parts) != 2 {
			return Token{}, 0, p.errorAt(start, "invalid delimiters \""+value+"\"")
		}
		p.open, p.close = parts[0], parts[1]
	}

	if kind != tagComment && kind != tagDelimiters && tok.Name == "" {
		return Token{}, 0, p.errorAt(start, "empty tag")
	}
	if kind != tagVariable {
		tok.Standalone, tok.Indent = standalone(p.src, start, end)
	}

	p.pos = end
	return tok, kind, nil
}

func (p *parser) textToken(from, to int) Token {
	line, col := p.location(from)
	return Token{
		Kind:   KindText,
		Value:  p.src[from:to],
		Start:  from,
		End:    to,
		Line:   line,
		Column: col,
	}
}

// location converts an offset into a 1-based line and column. Offsets are
// requested in increasing order so the scan is incremental.
func (p *parser) location(offset int) (int, int) {
	if offset < p.scanned {
		p.line, p.lineStart, p.scanned = 1, 0, 0
	}
	for i := p.scanned; i < offset && i < len(p.src); i++ {
		if p.src[i] == '\n' {
			p.line++
			p.lineStart = i + 1
		}
	}
	p.scanned = offset
	return p.line, offset - p.lineStart + 1
}

func (p *parser) errorAt(offset int, msg string) error {
	line, col := p.location(offset)
	return &ParseError{Line: line, Column: col, Offset: offset, Message: msg}
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && isBlank(s[pos]) {
		pos++
	}
	return pos
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// standalone reports whether the tag spanning [start,end) is alone on its
// line, returning the indentation before it.
func standalone(src string, start, end int) (bool, string) {
	lineStart := strings.LastIndexByte(src[:start], '\n') + 1
	indent := src[lineStart:start]
	if strings.Trim(indent, " \t") != "" {
		return false, ""
	}
	lineEnd := strings.IndexByte(src[end:], '\n')
	rest := src[end:]
	if lineEnd >= 0 {
		rest = src[end : end+lineEnd]
	}
	if strings.Trim(rest, " \t\r") != "" {
		return false, ""
	}
	return true, indent
}

// lineBounds returns the start of the line holding offset and the offset just
// past its terminating newline (or the end of src).
func lineBounds(src string, start, end int) (int, int) {
	lineStart := strings.LastIndexByte(src[:start], '\n') + 1
	nl := strings.IndexByte(src[end:], '\n')
	if nl < 0 {
		return lineStart, len(src)
	}
	return lineStart, end + nl + 1
}
