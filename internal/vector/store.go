package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/shiori/internal/embedding"
)

// Entry is a stored key with its vector and metadata.
type Entry struct {
	Key      string
	Vector   []float32
	Metadata map[string]string
}

// Result is a single search hit.
type Result struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

// Store is an in-memory vector store with exact (brute-force) top-k search.
// Entries are kept in insertion order; re-inserting a key replaces its vector and
// metadata but keeps its original position, which is what ties are broken by.
type Store struct {
	dimensions int
	entries    []Entry
	pos        map[string]int
	mu         sync.RWMutex
}

// NewStore creates an empty store. Its dimension is fixed by the first insert.
func NewStore() *Store {
	return &Store{
		entries: make([]Entry, 0),
		pos:     make(map[string]int),
	}
}

// Insert stores or overwrites the entry for key.
func (s *Store) Insert(key string, vec []float32, metadata map[string]string) error {
	return s.InsertBatch([]Entry{{Key: key, Vector: vec, Metadata: metadata}})
}

// InsertBatch validates every entry before committing any of them, so a failed
// batch leaves the store unchanged. Later entries win over earlier ones with the same key.
func (s *Store) InsertBatch(batch []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimensions
	for _, e := range batch {
		if e.Key == "" {
			return fmt.Errorf("empty key")
		}
		if len(e.Vector) == 0 {
			return &DimensionError{Key: e.Key, Got: 0, Expected: dim}
		}
		if dim == 0 {
			dim = len(e.Vector)
		}
		if len(e.Vector) != dim {
			return &DimensionError{Key: e.Key, Got: len(e.Vector), Expected: dim}
		}
	}

	s.dimensions = dim
	for _, e := range batch {
		stored := Entry{Key: e.Key, Vector: copyVector(e.Vector), Metadata: copyMetadata(e.Metadata)}
		if i, ok := s.pos[e.Key]; ok {
			s.entries[i] = stored
			continue
		}
		s.pos[e.Key] = len(s.entries)
		s.entries = append(s.entries, stored)
	}
	return nil
}

// Search scores every entry against query and returns the top k by descending score.
func (s *Store) Search(query []float32, k int, metric Metric) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchLocked(query, k, metric, s.entries)
}

// SearchRestricted is Search limited to the entries whose key is in candidates.
// Candidate keys not present in the store are ignored.
func (s *Store) SearchRestricted(query []float32, k int, metric Metric, candidates []string) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(candidates) == 0 {
		return []Result{}, nil
	}
	positions := make([]int, 0, len(candidates))
	seen := make(map[int]struct{}, len(candidates))
	for _, key := range candidates {
		i, ok := s.pos[key]
		if !ok {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		positions = append(positions, i)
	}
	// Insertion order, so ties break the same way as in Search.
	sort.Ints(positions)
	subset := make([]Entry, len(positions))
	for j, i := range positions {
		subset[j] = s.entries[i]
	}
	return s.searchLocked(query, k, metric, subset)
}

func (s *Store) searchLocked(query []float32, k int, metric Metric, entries []Entry) ([]Result, error) {
	if k <= 0 || len(entries) == 0 {
		return []Result{}, nil
	}
	if len(query) != s.dimensions {
		return nil, &DimensionError{Got: len(query), Expected: s.dimensions}
	}
	if metric == nil {
		metric = Cosine
	}
	scores := make([]Result, len(entries))
	for i, e := range entries {
		score, err := metric(query, e.Vector)
		if err != nil {
			return nil, fmt.Errorf("score %q: %w", e.Key, err)
		}
		scores[i] = Result{Key: e.Key, Score: score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// SearchByText embeds text with embedder and searches the whole store.
// Embedding failures are returned as *embedding.ProviderError.
func (s *Store) SearchByText(ctx context.Context, text string, k int, metric Metric, embedder embedding.Embedder) ([]Result, error) {
	query, err := embedding.EmbedOne(ctx, embedder, text)
	if err != nil {
		return nil, err
	}
	return s.Search(query, k, metric)
}

// Retrieve returns a copy of the vector stored under key.
func (s *Store) Retrieve(key string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.pos[key]
	if !ok {
		return nil, false
	}
	return copyVector(s.entries[i].Vector), true
}

// Entry returns a copy of the entry stored under key.
func (s *Store) Entry(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.pos[key]
	if !ok {
		return Entry{}, false
	}
	e := s.entries[i]
	return Entry{Key: e.Key, Vector: copyVector(e.Vector), Metadata: copyMetadata(e.Metadata)}, true
}

// Keys returns all keys in insertion order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns the key and a copy of the metadata of every entry, in insertion order.
// The label index is rebuilt from this.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = Entry{Key: e.Key, Metadata: copyMetadata(e.Metadata)}
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dimensions returns the vector dimension, or 0 while the store is empty.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
