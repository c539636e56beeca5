// Package ingest embeds chunks and loads them into a vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/vector"
	"github.com/hyperjump/shiori/pkg/utils"
)

// ErrIngestion is matched by Error.
var ErrIngestion = errors.New("ingestion failed")

// Error reports a failed ingestion. The store is left unchanged.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "ingest: " + e.Reason
	}
	return fmt.Sprintf("ingest: %s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIngestion.
func (e *Error) Is(target error) bool {
	return target == ErrIngestion
}

// Ingest embeds every chunk's text in one batch call and inserts the results into
// store under each chunk's key, with the chunk's metadata. Either every chunk is
// stored or none is. A zero-norm embedding fails the batch, since it can never be
// scored by cosine similarity.
func Ingest(ctx context.Context, store *vector.Store, chunks []models.Chunk, embedder embedding.Embedder) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if c.Key() == "" {
			return &Error{Reason: fmt.Sprintf("chunk %d has neither id nor text", i)}
		}
		texts[i] = c.Text
	}

	vecs, err := embedding.EmbedMany(ctx, embedder, texts)
	if err != nil {
		return &Error{Reason: "embedding", Err: err}
	}

	entries := make([]vector.Entry, len(chunks))
	for i, c := range chunks {
		if utils.L2Norm(vecs[i]) == 0 {
			return &Error{
				Reason: fmt.Sprintf("chunk %d", i),
				Err:    &vector.DegenerateVectorError{Key: c.Key()},
			}
		}
		entries[i] = vector.Entry{Key: c.Key(), Vector: vecs[i], Metadata: c.Metadata}
	}
	if err := store.InsertBatch(entries); err != nil {
		return &Error{Reason: "insert", Err: err}
	}
	return nil
}

// Stats summarises an ingestion run.
type Stats struct {
	Chunks     int           `json:"chunks"`
	Dimensions int           `json:"dimensions"`
	Duration   time.Duration `json:"duration"`
}

// Ingester runs Ingest against a fixed store and embedder, with logging.
type Ingester struct {
	store    *vector.Store
	embedder embedding.Embedder
	logger   *zap.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Ingester) { i.logger = l }
}

// NewIngester creates an Ingester.
func NewIngester(store *vector.Store, embedder embedding.Embedder, opts ...Option) *Ingester {
	i := &Ingester{store: store, embedder: embedder, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest embeds and stores chunks.
func (i *Ingester) Ingest(ctx context.Context, chunks []models.Chunk) (Stats, error) {
	start := time.Now()
	if err := Ingest(ctx, i.store, chunks, i.embedder); err != nil {
		i.logger.Error("ingestion failed", zap.Int("chunks", len(chunks)), zap.Error(err))
		return Stats{}, err
	}
	stats := Stats{
		Chunks:     len(chunks),
		Dimensions: i.store.Dimensions(),
		Duration:   time.Since(start),
	}
	i.logger.Info("ingested chunks",
		zap.Int("chunks", stats.Chunks),
		zap.Int("store_size", i.store.Len()),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}
