// Package models defines the documents, chunks, labels and search payloads shared across packages.
package models

import "time"

// Document is a source file recorded in the catalog.
type Document struct {
	ID        string            `json:"id" db:"id"`
	Title     string            `json:"title" db:"title"`
	Path      string            `json:"path,omitempty" db:"path"`
	Metadata  map[string]string `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// Chunk is a unit of text to be embedded and stored. Metadata may carry the
// "chapter" and "section" keys the label index is built from.
type Chunk struct {
	ID         string            `json:"id,omitempty" db:"id"`
	DocumentID string            `json:"document_id,omitempty" db:"document_id"`
	Text       string            `json:"text" db:"content"`
	ChunkIndex int               `json:"chunk_index,omitempty" db:"chunk_index"`
	Metadata   map[string]string `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time         `json:"created_at,omitempty" db:"created_at"`
}

// Key is the identifier the chunk is stored under: its ID when set, otherwise its text.
func (c Chunk) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Text
}

// Chapter returns the chunk's chapter metadata, or "".
func (c Chunk) Chapter() string {
	return c.Metadata[MetaChapter]
}

// Section returns the chunk's section metadata, or "".
func (c Chunk) Section() string {
	return c.Metadata[MetaSection]
}
