// Package storage defines the document and chunk catalog that ingestion reads from.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/shiori/internal/models"
)

// ErrNotFound is returned when a document or chunk does not exist.
var ErrNotFound = errors.New("not found")

// Storage persists documents and their chunks. Embeddings are not stored.
type Storage interface {
	// SaveDocument replaces the document and all of its chunks in one transaction.
	SaveDocument(ctx context.Context, doc *models.Document, chunks []models.Chunk) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentByPath(ctx context.Context, path string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// ListChunks returns every chunk ordered by document creation and chunk index.
	ListChunks(ctx context.Context) ([]models.Chunk, error)
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
