package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/labels"
	"github.com/hyperjump/shiori/internal/models"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"objects in python", "-limit", "5"},
			expected: []string{"-limit", "5", "objects in python"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-limit", "5", "objects in python"},
			expected: []string{"-limit", "5", "objects in python"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"objects in python"},
			expected: []string{"objects in python"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-metric", "dot"},
			expected: []string{"-metric", "dot", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"recursion"}, "recursion"},
		{"multiple words", []string{"python", "lists"}, "python lists"},
		{"single quoted phrase", []string{"python lists"}, "python lists"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_explicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\nstorage:\n  database_path: ./catalog.db\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path || cfg.Server.Port != 9090 {
		t.Errorf("resolved=%q port=%d", resolved, cfg.Server.Port)
	}
	if cfg.Storage.DatabasePath != filepath.Join(dir, "catalog.db") {
		t.Errorf("DatabasePath=%q", cfg.Storage.DatabasePath)
	}
	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "catalog.db")
	cfg.Embedding.Dimensions = 8
	return cfg
}

func TestBuildEmbedder_mockWithCache(t *testing.T) {
	cfg := testConfig(t)
	emb, closers, err := buildEmbedder(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := emb.(*embedding.CachedEmbedder); !ok {
		t.Errorf("expected a cached embedder, got %T", emb)
	}
	if emb.Dimensions() != 8 || len(closers) != 1 {
		t.Errorf("Dimensions=%d closers=%d", emb.Dimensions(), len(closers))
	}

	cfg.Embedding.CacheSize = -1
	emb, _, err = buildEmbedder(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := emb.(*embedding.MockEmbedder); !ok {
		t.Errorf("expected the bare provider without caches, got %T", emb)
	}
}

func TestBuildEmbedder_openAIRequiresKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.Provider = config.ProviderOpenAI
	cfg.Embedding.APIKeyEnv = "SHIORI_TEST_UNSET_KEY"
	t.Setenv("SHIORI_TEST_UNSET_KEY", "")
	if _, _, err := buildEmbedder(cfg, zap.NewNop()); err == nil {
		t.Error("expected error without an API key")
	}
}

func TestBuildMatcher(t *testing.T) {
	cfg := testConfig(t)
	m, closer, err := buildMatcher(cfg, zap.NewNop())
	if err != nil || m != nil || closer != nil {
		t.Fatalf("matcher none: %v, %v", m, err)
	}

	tocPath := filepath.Join(t.TempDir(), "toc.yaml")
	toc := "title: Python\nchapters:\n  - name: Python Primer\n    sections: [Objects in Python]\n  - name: Recursion\n"
	if err := os.WriteFile(tocPath, []byte(toc), 0600); err != nil {
		t.Fatal(err)
	}
	cfg.Labels.Matcher = config.MatcherKeyword
	cfg.Labels.TOCPath = tocPath
	m, closer, err = buildMatcher(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer closer()
	if _, ok := m.(*labels.KeywordMatcher); !ok {
		t.Fatalf("expected keyword matcher, got %T", m)
	}
	got, err := m.Match(context.Background(), "recursion")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || got[0] != models.ChapterLabel("Recursion") {
		t.Errorf("Match(recursion) = %v", got)
	}

	cfg.Labels.TOCPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, _, err := buildMatcher(cfg, zap.NewNop()); err == nil {
		t.Error("expected error for a missing table of contents")
	}
}

func TestInitializeComponents_indexThenLoad(t *testing.T) {
	cfg := testConfig(t)
	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx := context.Background()
	doc := filepath.Join(t.TempDir(), "book.md")
	if err := os.WriteFile(doc, []byte("# Recursion\nA function that calls itself.\n## Base Case\nEvery recursion needs one."), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Indexer.IndexFile(ctx, doc, nil); err != nil {
		t.Fatal(err)
	}
	stats, err := c.Engine.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Chunks != 2 {
		t.Errorf("Chunks=%d", stats.Chunks)
	}
	if st := c.Engine.Status(); st.Entries != 2 || st.Labels != 2 {
		t.Errorf("Status=%+v", st)
	}
}
