package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
)

const (
	metaKeySourcePath  = "source_path"
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"
	metaKeyChunkCount  = "chunk_count"
)

// Result describes one indexed document.
type Result struct {
	DocumentID string `json:"document_id"`
	Path       string `json:"path,omitempty"`
	Chunks     int    `json:"chunks"`
	Skipped    bool   `json:"skipped,omitempty"`
}

// Indexer extracts, chunks and records documents in the catalog. It does not embed;
// the search engine loads chunks from the catalog.
type Indexer struct {
	storage   storage.Storage
	extractor *extract.Extractor
	chunker   *Chunker
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer. extractor may be nil, in which case files are read as plain text.
func NewIndexer(store storage.Storage, extractor *extract.Extractor, cfg *config.SearchConfig, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		storage:   store,
		extractor: extractor,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.NumberedHeadings),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexText chunks text and saves it as a new document with a random ID.
func (idx *Indexer) IndexText(ctx context.Context, title, text string) (*Result, error) {
	doc := &models.Document{ID: uuid.New().String(), Title: title}
	chunks := idx.chunker.Chunk(doc.ID, text)
	if err := idx.storage.SaveDocument(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	return &Result{DocumentID: doc.ID, Chunks: len(chunks)}, nil
}

// IndexFile extracts, chunks and saves the file at path. The document ID is derived
// from the absolute path, so re-indexing replaces the same document. Files whose
// size and modification time match the catalog are skipped. If allowedExts is
// non-empty the extension must be in it.
func (idx *Indexer) IndexFile(ctx context.Context, path string, allowedExts []string) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	docID := documentID(absPath)
	if prev, ok := idx.unchanged(ctx, docID, absPath, info); ok {
		idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		return &Result{DocumentID: docID, Path: absPath, Chunks: prev, Skipped: true}, nil
	}

	text, err := idx.extractContent(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	doc := &models.Document{
		ID:    docID,
		Title: filepath.Base(absPath),
		Path:  absPath,
		Metadata: map[string]string{
			metaKeySourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
			metaKeySourceSize:  strconv.FormatInt(info.Size(), 10),
			metaKeySourcePath:  absPath,
		},
	}
	chunks := idx.chunker.Chunk(docID, text)
	doc.Metadata[metaKeyChunkCount] = strconv.Itoa(len(chunks))
	if err := idx.storage.SaveDocument(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	idx.logger.Debug("indexer file indexed",
		zap.String("path", absPath),
		zap.String("doc_id", docID),
		zap.Int("chunks", len(chunks)))
	return &Result{DocumentID: docID, Path: absPath, Chunks: len(chunks)}, nil
}

// unchanged reports whether the catalog already holds path at its current size and
// mtime, and if so how many chunks it has.
func (idx *Indexer) unchanged(ctx context.Context, docID, absPath string, info os.FileInfo) (int, bool) {
	doc, err := idx.storage.GetDocumentByPath(ctx, absPath)
	if err != nil || doc.ID != docID {
		return 0, false
	}
	if doc.Metadata[metaKeySourceMtime] != strconv.FormatInt(info.ModTime().UnixNano(), 10) ||
		doc.Metadata[metaKeySourceSize] != strconv.FormatInt(info.Size(), 10) {
		return 0, false
	}
	n, err := strconv.Atoi(doc.Metadata[metaKeyChunkCount])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IndexDirectory walks dir recursively and indexes each regular file whose extension
// is in allowedExts, or that the extractor supports when allowedExts is empty.
// It stops at the first error.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, allowedExts []string) ([]*Result, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	var results []*Result
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != absDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !idx.wanted(path, allowedExts) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		res, err := idx.IndexFile(ctx, path, allowedExts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, res)
		return nil
	})
	return results, err
}

func (idx *Indexer) wanted(path string, allowedExts []string) bool {
	if len(allowedExts) > 0 {
		return extensionAllowed(filepath.Ext(path), allowedExts)
	}
	if idx.extractor != nil {
		return idx.extractor.Supported(path)
	}
	return true
}

func (idx *Indexer) extractContent(path string) (string, error) {
	if idx.extractor != nil {
		return idx.extractor.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// documentID returns a stable ID for an absolute file path.
func documentID(absPath string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(absPath)))
	return "file:" + hex.EncodeToString(sum[:8])
}
