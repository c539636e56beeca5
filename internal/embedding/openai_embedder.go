package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/shiori/internal/openai"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. Large batches
// are split into sub-batches that run concurrently; output order matches input order.
type OpenAIEmbedder struct {
	client      *openai.Client
	model       string
	dimensions  int
	batchSize   int
	concurrency int
}

// OpenAIOption configures an OpenAIEmbedder.
type OpenAIOption func(*OpenAIEmbedder)

// WithBatchSize sets the maximum number of texts per request (default 64).
func WithBatchSize(n int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithConcurrency sets how many sub-batch requests may be in flight (default 4).
func WithConcurrency(n int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewOpenAIEmbedder creates an embedder for model. dimensions is what the model returns;
// responses of any other length are rejected.
func NewOpenAIEmbedder(client *openai.Client, model string, dimensions int, opts ...OpenAIOption) *OpenAIEmbedder {
	e := &OpenAIEmbedder{
		client:      client,
		model:       model,
		dimensions:  dimensions,
		batchSize:   64,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed returns the embedding for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, &ProviderError{Op: "embed", Err: err}
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in sub-batches of at most batchSize.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for start := 0; start < len(texts); start += e.batchSize {
		start := start
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			vecs, err := e.request(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("texts %d-%d: %w", start, end-1, err)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &ProviderError{Op: "embed_batch", Err: err}
	}
	return out, nil
}

func (e *OpenAIEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.client.Embeddings(ctx, e.model, texts)
	if err != nil {
		return nil, err
	}
	for i, v := range vecs {
		if e.dimensions > 0 && len(v) != e.dimensions {
			return nil, fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(v), e.dimensions)
		}
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
