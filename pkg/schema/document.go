package schema

import "errors"

// Document wraps a raw schema payload fetched from a provider.
type Document struct {
	name     string
	location string
	raw      []byte
}

// NewDocument constructs a Document wrapper while validating the inputs.
func NewDocument(name, location string, raw []byte) (Document, error) {
	if name == "" {
		return Document{}, errors.New("schema: document name is required")
	}
	if len(raw) == 0 {
		return Document{}, errors.New("schema: raw document is empty")
	}

	clone := append([]byte(nil), raw...)
	return Document{name: name, location: location, raw: clone}, nil
}

// MustNewDocument panics if the document cannot be created. Useful for tests.
func MustNewDocument(name, location string, raw []byte) Document {
	doc, err := NewDocument(name, location, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

// Name returns the provider name of the document.
func (d Document) Name() string {
	return d.name
}

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Location returns where the payload was read from.
func (d Document) Location() string {
	return d.location
}
