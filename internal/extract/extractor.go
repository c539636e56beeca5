// Package extract turns document files into text whose headings the chunker can see.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// supported maps file extensions to their extraction function.
var supported = map[string]func([]byte) (string, error){
	".txt":      extractPlain,
	".text":     extractPlain,
	".md":       extractPlain,
	".markdown": extractPlain,
	".rst":      extractPlain,
	".pdf":      extractPDF,
	".docx":     extractDOCX,
}

// Extractor extracts text from document files. Markdown and plain text are returned
// as-is; DOCX headings are rendered as Markdown "#" lines; PDF pages are separated
// by blank lines.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether path has an extension the extractor handles.
func (e *Extractor) Supported(path string) bool {
	_, ok := supported[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on ext, which includes the leading dot.
// Unknown extensions are treated as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	if fn, ok := supported[strings.ToLower(ext)]; ok {
		return fn(content)
	}
	return extractPlain(content)
}
