package schema

import (
	"crypto/sha256"
	"encoding/hex"
)

// SourceKind records how a template was authored.
type SourceKind string

const (
	SourceKindUnknown SourceKind = "UNKNOWN"
	SourceKindMST     SourceKind = "MST"
	SourceKindYAML    SourceKind = "YAML"
)

// Source identifies the text a template was compiled from. Two templates
// with the same Hash were compiled from the same text.
type Source struct {
	Kind SourceKind
	Text string
	Hash string
}

// NewSource records text and its sha256 digest.
func NewSource(kind SourceKind, text string) Source {
	return Source{Kind: kind, Text: text, Hash: HashText(text)}
}

// HashText returns the hex sha256 digest of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
