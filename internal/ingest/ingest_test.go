package ingest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/vector"
)

func TestIngest(t *testing.T) {
	store := vector.NewStore()
	emb := embedding.NewStaticEmbedder(map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
	})
	chunks := []models.Chunk{
		{Text: "a", Metadata: map[string]string{"chapter": "C1"}},
		{ID: "second", Text: "b"},
	}
	if err := Ingest(context.Background(), store, chunks, emb); err != nil {
		t.Fatal(err)
	}
	if emb.Calls() != 1 {
		t.Errorf("expected a single batch call, got %d", emb.Calls())
	}
	if !reflect.DeepEqual(store.Keys(), []string{"a", "second"}) {
		t.Errorf("Keys = %v", store.Keys())
	}
	e, ok := store.Entry("a")
	if !ok || e.Metadata["chapter"] != "C1" {
		t.Errorf("metadata not stored: %+v", e)
	}
	vec, _ := store.Retrieve("second")
	if !reflect.DeepEqual(vec, []float32{0, 1}) {
		t.Errorf("Retrieve(second) = %v", vec)
	}
}

func TestIngest_Empty(t *testing.T) {
	store := vector.NewStore()
	emb := embedding.NewStaticEmbedder(map[string][]float32{"a": {1}})
	if err := Ingest(context.Background(), store, nil, emb); err != nil {
		t.Fatal(err)
	}
	if emb.Calls() != 0 || store.Len() != 0 {
		t.Errorf("calls=%d len=%d", emb.Calls(), store.Len())
	}
}

type shortEmbedder struct {
	*embedding.MockEmbedder
}

func (s shortEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := s.MockEmbedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	return vecs[:len(vecs)-1], nil
}

type failingEmbedder struct {
	*embedding.MockEmbedder
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("rate limited")
}

func TestIngest_AtomicOnFailure(t *testing.T) {
	chunks := []models.Chunk{{Text: "x"}, {Text: "y"}, {Text: "z"}}
	tests := []struct {
		name     string
		embedder embedding.Embedder
	}{
		{"short response", shortEmbedder{embedding.NewMockEmbedder(4)}},
		{"provider error", failingEmbedder{embedding.NewMockEmbedder(4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := vector.NewStore()
			_ = store.Insert("existing", []float32{1, 0, 0, 0}, nil)
			err := Ingest(context.Background(), store, chunks, tt.embedder)
			if !errors.Is(err, ErrIngestion) {
				t.Fatalf("expected ErrIngestion, got %v", err)
			}
			if !errors.Is(err, embedding.ErrProvider) {
				t.Errorf("expected wrapped ErrProvider, got %v", err)
			}
			if store.Len() != 1 {
				t.Errorf("store mutated: Len=%d", store.Len())
			}
		})
	}
}

func TestIngest_DimensionMismatch(t *testing.T) {
	store := vector.NewStore()
	_ = store.Insert("existing", []float32{1, 0, 0}, nil)
	err := Ingest(context.Background(), store, []models.Chunk{{Text: "x"}}, embedding.NewMockEmbedder(8))
	if !errors.Is(err, ErrIngestion) || !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("expected ingestion dimension error, got %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("store mutated: Len=%d", store.Len())
	}
}

func TestIngest_EmptyKey(t *testing.T) {
	store := vector.NewStore()
	err := Ingest(context.Background(), store, []models.Chunk{{Text: "ok"}, {}}, embedding.NewMockEmbedder(4))
	var ie *Error
	if !errors.As(err, &ie) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("store mutated: Len=%d", store.Len())
	}
}

func TestIngest_RejectsZeroNormEmbedding(t *testing.T) {
	store := vector.NewStore()
	emb := embedding.NewStaticEmbedder(map[string][]float32{
		"blank page": {0, 0},
		"bananas":    {1, 0},
	})
	err := Ingest(context.Background(), store, []models.Chunk{{Text: "bananas"}, {Text: "blank page"}}, emb)
	if !errors.Is(err, ErrIngestion) {
		t.Fatalf("expected ErrIngestion, got %v", err)
	}
	var dve *vector.DegenerateVectorError
	if !errors.As(err, &dve) || dve.Key != "blank page" {
		t.Errorf("expected DegenerateVectorError for blank page, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("store mutated by rejected batch: Len=%d", store.Len())
	}

	if err := Ingest(context.Background(), store, []models.Chunk{{Text: "bananas"}}, emb); err != nil {
		t.Fatal(err)
	}
	results, err := store.Search([]float32{1, 0.5}, 1, vector.Cosine)
	if err != nil {
		t.Fatalf("cosine search after rejected batch: %v", err)
	}
	if len(results) != 1 || results[0].Key != "bananas" {
		t.Errorf("results = %+v", results)
	}
}

func TestIngester_Stats(t *testing.T) {
	store := vector.NewStore()
	ing := NewIngester(store, embedding.NewMockEmbedder(16))
	stats, err := ing.Ingest(context.Background(), []models.Chunk{{Text: "one"}, {Text: "two"}})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Chunks != 2 || stats.Dimensions != 16 {
		t.Errorf("stats = %+v", stats)
	}
}
