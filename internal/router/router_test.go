package router

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/labelindex"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/vector"
)

var fixtures = []struct {
	chunk models.Chunk
	vec   []float32
}{
	{models.Chunk{Text: "I like broccoli and bananas.", Metadata: map[string]string{"chapter": "Food", "section": "Fruit"}}, []float32{0.9, 0.1, 0.2}},
	{models.Chunk{Text: "Chinchillas are cute.", Metadata: map[string]string{"chapter": "Animals"}}, []float32{0.05, 0.95, 0.1}},
	{models.Chunk{Text: "I ate a banana smoothie.", Metadata: map[string]string{"chapter": "Food", "section": "Drinks"}}, []float32{0.85, 0.05, 0.3}},
}

func setup(t *testing.T) (*vector.Store, *labelindex.Index, *embedding.StaticEmbedder) {
	t.Helper()
	store := vector.NewStore()
	chunks := make([]models.Chunk, 0, len(fixtures))
	for _, f := range fixtures {
		if err := store.Insert(f.chunk.Key(), f.vec, f.chunk.Metadata); err != nil {
			t.Fatal(err)
		}
		chunks = append(chunks, f.chunk)
	}
	idx := labelindex.New()
	idx.Build(chunks)
	emb := embedding.NewStaticEmbedder(map[string][]float32{
		"bananas":     {1, 0, 0.2},
		"pets":        {0, 1, 0},
		"zero vector": {0, 0, 0},
	})
	return store, idx, emb
}

func labels(ls ...models.Label) LabelMatcher {
	return MatcherFunc(func(context.Context, string) ([]models.Label, error) {
		return ls, nil
	})
}

func TestRouter_NoMatcherSearchesAll(t *testing.T) {
	store, _, emb := setup(t)
	r := New(store, emb)
	routed, err := r.RouteDetailed(context.Background(), "bananas", 2, vector.Cosine)
	if err != nil {
		t.Fatal(err)
	}
	if routed.Narrowed {
		t.Error("expected full-store search")
	}
	got := map[string]bool{}
	for _, res := range routed.Results {
		got[res.Key] = true
	}
	if len(routed.Results) != 2 || !got["I like broccoli and bananas."] || !got["I ate a banana smoothie."] {
		t.Errorf("unexpected results: %+v", routed.Results)
	}
	if routed.Candidates != 3 {
		t.Errorf("Candidates = %d, want 3", routed.Candidates)
	}
}

func TestRouter_NarrowedNeverLeaks(t *testing.T) {
	store, idx, emb := setup(t)
	r := New(store, emb, WithIndex(idx), WithMatcher(labels(models.ChapterLabel("Animals"))))
	routed, err := r.RouteDetailed(context.Background(), "bananas", 3, vector.Cosine)
	if err != nil {
		t.Fatal(err)
	}
	if !routed.Narrowed || routed.Candidates != 1 {
		t.Errorf("expected narrowed search over 1 candidate, got %+v", routed)
	}
	if len(routed.Results) != 1 || routed.Results[0].Key != "Chinchillas are cute." {
		t.Errorf("restricted search leaked: %+v", routed.Results)
	}
}

func TestRouter_SectionLabelsUnion(t *testing.T) {
	store, idx, emb := setup(t)
	r := New(store, emb, WithIndex(idx), WithMatcher(labels(
		models.SectionLabel("Food", "Drinks"),
		models.ChapterLabel("Animals"),
		models.ChapterLabel("Animals"),
	)))
	keys, err := r.RouteKeys(context.Background(), "bananas", 5, vector.Cosine)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"I ate a banana smoothie.", "Chinchillas are cute."}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("RouteKeys = %v, want %v", keys, want)
	}
}

func TestRouter_Fallbacks(t *testing.T) {
	store, idx, emb := setup(t)
	tests := []struct {
		name string
		opts []Option
	}{
		{"no labels", []Option{WithIndex(idx), WithMatcher(labels())}},
		{"unknown labels", []Option{WithIndex(idx), WithMatcher(labels(models.ChapterLabel("Astronomy")))}},
		{"matcher error", []Option{WithIndex(idx), WithMatcher(MatcherFunc(func(context.Context, string) ([]models.Label, error) {
			return nil, errors.New("model unavailable")
		}))}},
		{"unbuilt index", []Option{WithIndex(labelindex.New()), WithMatcher(labels(models.ChapterLabel("Food")))}},
		{"no index", []Option{WithMatcher(labels(models.ChapterLabel("Food")))}},
	}
	full, err := New(store, emb).Route(context.Background(), "pets", 3, vector.Cosine)
	if err != nil {
		t.Fatal(err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routed, err := New(store, emb, tt.opts...).RouteDetailed(context.Background(), "pets", 3, vector.Cosine)
			if err != nil {
				t.Fatal(err)
			}
			if routed.Narrowed {
				t.Error("expected fallback to full-store search")
			}
			if !reflect.DeepEqual(routed.Results, full) {
				t.Errorf("results %+v, want %+v", routed.Results, full)
			}
		})
	}
}

func TestRouter_MatcherNotCalledWithoutIndex(t *testing.T) {
	store, _, emb := setup(t)
	called := false
	m := MatcherFunc(func(context.Context, string) ([]models.Label, error) {
		called = true
		return nil, nil
	})
	if _, err := New(store, emb, WithMatcher(m)).Route(context.Background(), "pets", 1, nil); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("matcher should not be consulted without an index")
	}
}

type brokenEmbedder struct {
	*embedding.MockEmbedder
}

func (brokenEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("connection refused")
}

func TestRouter_EmbeddingFailure(t *testing.T) {
	store, idx, _ := setup(t)
	r := New(store, brokenEmbedder{embedding.NewMockEmbedder(3)}, WithIndex(idx), WithMatcher(labels(models.ChapterLabel("Food"))))
	_, err := r.Route(context.Background(), "bananas", 2, vector.Cosine)
	if !errors.Is(err, embedding.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	var pe *embedding.ProviderError
	if !errors.As(err, &pe) || pe.Op != "embed" {
		t.Errorf("expected *ProviderError with op embed, got %v", err)
	}
}

func TestRouter_DegenerateQuery(t *testing.T) {
	store, _, emb := setup(t)
	_, err := New(store, emb).Route(context.Background(), "zero vector", 2, vector.Cosine)
	if !errors.Is(err, vector.ErrDegenerateVector) {
		t.Errorf("expected ErrDegenerateVector, got %v", err)
	}
}

func TestRouter_CancelledContext(t *testing.T) {
	store, idx, emb := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(store, emb, WithIndex(idx), WithMatcher(labels(models.ChapterLabel("Food"))))
	if _, err := r.Route(ctx, "bananas", 2, vector.Cosine); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if store.Len() != 3 {
		t.Errorf("store mutated: Len=%d", store.Len())
	}
}

func TestRouter_SearchAllIgnoresMatcher(t *testing.T) {
	store, idx, emb := setup(t)
	r := New(store, emb, WithIndex(idx), WithMatcher(labels(models.ChapterLabel("Animals"))))
	routed, err := r.SearchAll(context.Background(), "bananas", 1, vector.Cosine)
	if err != nil {
		t.Fatal(err)
	}
	if routed.Narrowed || len(routed.Results) != 1 || routed.Results[0].Key != "I like broccoli and bananas." {
		t.Errorf("unexpected %+v", routed)
	}
}
