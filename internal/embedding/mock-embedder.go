package embedding

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/hyperjump/shiori/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and offline use. The same text
// always gets the same unit-length embedding.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding derived from the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}

// StaticEmbedder returns fixed vectors for known texts and falls back to a
// MockEmbedder for anything else.
type StaticEmbedder struct {
	Vectors  map[string][]float32
	Fallback *MockEmbedder
	calls    atomic.Int64
}

// NewStaticEmbedder creates a StaticEmbedder. All vectors must share one dimension.
func NewStaticEmbedder(vectors map[string][]float32) *StaticEmbedder {
	dim := 0
	for _, v := range vectors {
		dim = len(v)
		break
	}
	return &StaticEmbedder{Vectors: vectors, Fallback: NewMockEmbedder(dim)}
}

// Embed implements Embedder.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if v, ok := e.Vectors[text]; ok {
		return v, nil
	}
	return e.Fallback.Embed(ctx, text)
}

// EmbedBatch implements Embedder with a single counted call.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := e.Vectors[text]; ok {
			out[i] = v
			continue
		}
		v, err := e.Fallback.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Calls returns the number of Embed and EmbedBatch invocations.
func (e *StaticEmbedder) Calls() int {
	return int(e.calls.Load())
}

// Dimensions implements Embedder.
func (e *StaticEmbedder) Dimensions() int {
	return e.Fallback.Dimensions()
}

// Close implements Embedder.
func (e *StaticEmbedder) Close() error {
	return nil
}
