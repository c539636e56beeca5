// Package embedding provides text embedding providers and caching.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Embedder produces vector embeddings for text. EmbedBatch must return one vector
// per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// ErrProvider is matched by ProviderError.
var ErrProvider = errors.New("embedding provider failed")

// ProviderError wraps a failed or malformed call to an embedding provider.
type ProviderError struct {
	Op  string // "embed" or "embed_batch"
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrProvider.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// EmbedOne embeds text with e, wrapping any failure in a *ProviderError.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vec, err := e.Embed(ctx, text)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &ProviderError{Op: "embed", Err: err}
	}
	if len(vec) == 0 {
		return nil, &ProviderError{Op: "embed", Err: fmt.Errorf("empty embedding returned")}
	}
	return vec, nil
}

// EmbedMany embeds texts with e and checks the provider's batching contract:
// the result must have exactly one vector per text.
func EmbedMany(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	vecs, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &ProviderError{Op: "embed_batch", Err: err}
	}
	if len(vecs) != len(texts) {
		return nil, &ProviderError{
			Op:  "embed_batch",
			Err: fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), len(texts)),
		}
	}
	return vecs, nil
}
