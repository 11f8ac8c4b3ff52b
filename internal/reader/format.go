package reader

import (
	"os"
	"path/filepath"
	"strings"
)

// Format defines a document format the engine can open.
type Format interface {
	Name() string
	Extensions() []string
	Open(filename string) (*Document, error)
}

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Open loads a document using a registered format or plain text fallback.
func Open(filename string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f.Open(filename)
			}
		}
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return TextDocument(filename, string(data)), nil
}

// TextDocument makes single section document without table of contents.
func TextDocument(filename, text string) *Document {
	name := filepath.Base(filename)
	return newDocument(filename, strings.TrimSuffix(name, filepath.Ext(name)), "Text",
		[]Section{{Href: name, Text: text}}, nil)
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}
