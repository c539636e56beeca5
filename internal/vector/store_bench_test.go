package vector

import (
	"strconv"
	"testing"
)

func benchStore(b *testing.B, n, dim int) *Store {
	b.Helper()
	s := NewStore()
	batch := make([]Entry, n)
	for i := range batch {
		vec := make([]float32, dim)
		vec[0] = float32(i) / float32(n)
		vec[i%dim] += 1
		batch[i] = Entry{Key: "k" + strconv.Itoa(i), Vector: vec}
	}
	if err := s.InsertBatch(batch); err != nil {
		b.Fatal(err)
	}
	return s
}

func BenchmarkStoreSearch(b *testing.B) {
	s := benchStore(b, 1000, 384)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Search(query, 10, Cosine)
	}
}

func BenchmarkStoreSearchRestricted(b *testing.B) {
	s := benchStore(b, 1000, 384)
	candidates := make([]string, 0, 100)
	for i := 0; i < 1000; i += 10 {
		candidates = append(candidates, "k"+strconv.Itoa(i))
	}
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.SearchRestricted(query, 10, Cosine, candidates)
	}
}
