package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/storage"
)

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt", ".md"}, true},
		{".TXT", []string{".txt"}, true},
		{".md", []string{".txt", ".md"}, true},
		{".md", []string{"md"}, true},
		{".go", []string{".txt"}, false},
		{"", []string{".txt"}, false},
		{".rst", []string{".txt", ".md", ".rst"}, true},
	}
	for _, tt := range tests {
		got := extensionAllowed(tt.ext, tt.allowed)
		if got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

func testIndexer(t *testing.T) (*Indexer, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	cfg := &config.SearchConfig{ChunkSize: 10, ChunkOverlap: 2}
	return NewIndexer(store, extract.NewExtractor(), cfg), store
}

func mustAbs(t *testing.T, path string) string {
	t.Helper()
	a, err := filepath.Abs(path)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestIndexFile_createAndUpdate(t *testing.T) {
	idx, store := testIndexer(t)
	ctx := context.Background()
	dir := t.TempDir()

	fPath := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(fPath, []byte("# Fruits\nBananas are yellow."), 0600); err != nil {
		t.Fatal(err)
	}
	res, err := idx.IndexFile(ctx, fPath, []string{".txt", ".md"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped || res.Chunks != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.DocumentID != documentID(mustAbs(t, fPath)) {
		t.Errorf("DocumentID=%s", res.DocumentID)
	}
	doc, err := store.GetDocument(ctx, res.DocumentID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "doc.md" || doc.Path != mustAbs(t, fPath) {
		t.Errorf("unexpected doc: title=%q path=%q", doc.Title, doc.Path)
	}
	chunks, err := store.ListChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0].Chapter() != "Fruits" || chunks[0].Text != "Bananas are yellow." {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}

	if err := os.WriteFile(fPath, []byte("# Animals\nChinchillas are cute. So are otters."), 0600); err != nil {
		t.Fatal(err)
	}
	res2, err := idx.IndexFile(ctx, fPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res2.DocumentID != res.DocumentID || res2.Skipped {
		t.Errorf("re-index should replace the same document: %+v", res2)
	}
	chunks, err = store.ListChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0].Chapter() != "Animals" {
		t.Errorf("after update: %+v", chunks)
	}
}

func TestIndexFile_skipsUnchanged(t *testing.T) {
	idx, _ := testIndexer(t)
	ctx := context.Background()
	fPath := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(fPath, []byte("one two three"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}
	res, err := idx.IndexFile(ctx, fPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped || res.Chunks != 1 {
		t.Errorf("expected a skipped result with 1 chunk, got %+v", res)
	}
}

func TestIndexFile_extensionFiltered(t *testing.T) {
	idx, _ := testIndexer(t)
	fPath := filepath.Join(t.TempDir(), "script.sh")
	if err := os.WriteFile(fPath, []byte("#!/bin/bash"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.IndexFile(context.Background(), fPath, []string{".txt", ".md"}); err == nil {
		t.Error("expected error for disallowed extension")
	}
}

func TestIndexFile_notRegularFile(t *testing.T) {
	idx, _ := testIndexer(t)
	if _, err := idx.IndexFile(context.Background(), t.TempDir(), nil); err == nil {
		t.Error("expected error for directory")
	}
}

func TestIndexFile_nonexistent(t *testing.T) {
	idx, _ := testIndexer(t)
	if _, err := idx.IndexFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIndexText(t *testing.T) {
	idx, store := testIndexer(t)
	ctx := context.Background()
	res, err := idx.IndexText(ctx, "pasted", "## Setup\nInstall the tool first.")
	if err != nil {
		t.Fatal(err)
	}
	if res.DocumentID == "" || res.Chunks != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	c, err := store.GetChunk(ctx, res.DocumentID+"_0")
	if err != nil {
		t.Fatal(err)
	}
	if c.Section() != "Setup" || c.Chapter() != "" {
		t.Errorf("metadata=%v", c.Metadata)
	}
}

func TestIndexDirectory(t *testing.T) {
	idx, store := testIndexer(t)
	ctx := context.Background()
	dir := t.TempDir()
	files := map[string]string{
		"a.md":            "# A\nalpha text",
		"sub/b.txt":       "beta text",
		"sub/skip.bin":    "binary",
		".hidden/c.md":    "hidden text",
		"sub/deeper/d.md": "delta text",
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	results, err := idx.IndexDirectory(ctx, dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 indexed files, got %d: %+v", len(results), results)
	}
	n, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("CountDocuments=%d", n)
	}

	results, err = idx.IndexDirectory(ctx, dir, []string{".txt"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || !results[0].Skipped {
		t.Errorf("expected the unchanged txt file only: %+v", results)
	}
}

func TestIndexDirectory_notADirectory(t *testing.T) {
	idx, _ := testIndexer(t)
	fPath := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(fPath, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.IndexDirectory(context.Background(), fPath, nil); err == nil {
		t.Error("expected error")
	}
}
