package embedding

import (
	"container/list"
	"context"
	"sync"
)

// Cache stores embeddings keyed by the embedded text. Implementations are best-effort:
// a failing backend reports a miss rather than an error.
type Cache interface {
	Get(ctx context.Context, text string) ([]float32, bool)
	Set(ctx context.Context, text string, vec []float32)
}

// EmbeddingCache is an in-process LRU cache for embeddings keyed by text.
type EmbeddingCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewEmbeddingCache creates a new cache with the given capacity.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity <= 0 {
		capacity = 10000
	}
	return &EmbeddingCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding for text if present and marks it recently used.
func (c *EmbeddingCache) Get(_ context.Context, text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[text]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for text, evicting the least recently used entry if at capacity.
func (c *EmbeddingCache) Set(_ context.Context, text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[text]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = vec
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: text, value: vec})
	c.cache[text] = elem

	for c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.cache, oldest.Value.(*cacheEntry).key)
	}
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// TieredCache consults caches in order. A hit in a later tier is copied into the
// earlier ones; Set writes every tier.
type TieredCache []Cache

// Get implements Cache.
func (t TieredCache) Get(ctx context.Context, text string) ([]float32, bool) {
	for i, c := range t {
		if vec, ok := c.Get(ctx, text); ok {
			for j := 0; j < i; j++ {
				t[j].Set(ctx, text, vec)
			}
			return vec, true
		}
	}
	return nil, false
}

// Set implements Cache.
func (t TieredCache) Set(ctx context.Context, text string, vec []float32) {
	for _, c := range t {
		c.Set(ctx, text, vec)
	}
}
