package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// CachedEmbedder serves embeddings from a Cache and only sends misses to the
// wrapped provider. Concurrent requests for the same text (or the same set of
// missing texts) share a single provider call.
type CachedEmbedder struct {
	embedder Embedder
	cache    Cache
	sf       singleflight.Group
}

// NewCachedEmbedder wraps embedder with cache.
func NewCachedEmbedder(embedder Embedder, cache Cache) *CachedEmbedder {
	return &CachedEmbedder{embedder: embedder, cache: cache}
}

// Embed returns the embedding for text, calling the provider only on a cache miss.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(ctx, text); ok {
		return vec, nil
	}
	v, err := c.shared(ctx, "one:"+text, func(ctx context.Context) (interface{}, error) {
		vec, err := c.embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.cache.Set(ctx, text, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// EmbedBatch embeds texts, batching all cache misses into one provider call.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec, ok := c.cache.Get(ctx, text); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	v, err := c.shared(ctx, batchKey(missing), func(ctx context.Context) (interface{}, error) {
		return c.embedder.EmbedBatch(ctx, missing)
	})
	if err != nil {
		return nil, err
	}
	vecs := v.([][]float32)
	if len(vecs) != len(missing) {
		return nil, &ProviderError{
			Op:  "embed_batch",
			Err: fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), len(missing)),
		}
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		c.cache.Set(ctx, missing[j], vec)
	}
	return out, nil
}

// Dimensions returns the wrapped provider's dimension.
func (c *CachedEmbedder) Dimensions() int {
	return c.embedder.Dimensions()
}

// Close closes the wrapped provider.
func (c *CachedEmbedder) Close() error {
	return c.embedder.Close()
}

// shared runs fn once per key across concurrent callers. fn gets a context that is
// not cancelled with the caller's, since other callers may be waiting on the result;
// each caller still returns as soon as its own ctx is done.
func (c *CachedEmbedder) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func batchKey(texts []string) string {
	h := sha256.New()
	for _, t := range texts {
		sum := sha256.Sum256([]byte(t))
		h.Write(sum[:])
	}
	return "batch:" + hex.EncodeToString(h.Sum(nil))
}
