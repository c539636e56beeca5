// Package search provides the search engine: the vector store, its label index and
// the router that narrows queries to the chunks whose labels they match.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/ingest"
	"github.com/hyperjump/shiori/internal/labelindex"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/router"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/internal/vector"
)

// ErrInvalidQuery is returned for queries that fail validation.
var ErrInvalidQuery = errors.New("invalid query")

// ErrNoCatalog is returned by Load when the engine has no catalog.
var ErrNoCatalog = errors.New("no catalog configured")

// Status describes the engine's contents.
type Status struct {
	Entries    int  `json:"entries"`
	Dimensions int  `json:"dimensions"`
	Labels     int  `json:"labels"`
	Narrowing  bool `json:"narrowing"`
}

// Engine answers search queries over ingested chunks.
type Engine struct {
	store    *vector.Store
	index    *labelindex.Index
	router   *router.Router
	ingester *ingest.Ingester
	storage  storage.Storage
	matcher  router.LabelMatcher
	config   *config.SearchConfig
	logger   *zap.Logger

	// ingestMu serialises ingestion with the index rebuild that follows it.
	ingestMu sync.Mutex
	textMu   sync.RWMutex
	texts    map[string]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithStorage sets the catalog that Load reads chunks from.
func WithStorage(s storage.Storage) Option {
	return func(e *Engine) { e.storage = s }
}

// WithMatcher sets the label matcher used to narrow queries.
func WithMatcher(m router.LabelMatcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an empty engine that embeds with embedder. cfg supplies the
// default and maximum limit and the default metric; nil uses the defaults.
func NewEngine(embedder embedding.Embedder, cfg *config.SearchConfig, opts ...Option) *Engine {
	if cfg == nil {
		cfg = &config.Default().Search
	}
	e := &Engine{
		store:  vector.NewStore(),
		index:  labelindex.New(),
		config: cfg,
		logger: zap.NewNop(),
		texts:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	routerOpts := []router.Option{router.WithIndex(e.index), router.WithLogger(e.logger)}
	if e.matcher != nil {
		routerOpts = append(routerOpts, router.WithMatcher(e.matcher))
	}
	e.router = router.New(e.store, embedder, routerOpts...)
	e.ingester = ingest.NewIngester(e.store, embedder, ingest.WithLogger(e.logger))
	return e
}

// Load ingests every chunk in the catalog.
func (e *Engine) Load(ctx context.Context) (ingest.Stats, error) {
	if e.storage == nil {
		return ingest.Stats{}, ErrNoCatalog
	}
	chunks, err := e.storage.ListChunks(ctx)
	if err != nil {
		return ingest.Stats{}, fmt.Errorf("list chunks: %w", err)
	}
	return e.Ingest(ctx, chunks)
}

// Ingest embeds and stores chunks, then rebuilds the label index from the whole
// store. A failed ingestion leaves the store and index unchanged.
func (e *Engine) Ingest(ctx context.Context, chunks []models.Chunk) (ingest.Stats, error) {
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	stats, err := e.ingester.Ingest(ctx, chunks)
	if err != nil {
		return stats, err
	}
	e.textMu.Lock()
	for _, c := range chunks {
		e.texts[c.Key()] = c.Text
	}
	e.textMu.Unlock()
	e.rebuildIndex()
	return stats, nil
}

// rebuildIndex indexes every stored entry. Overwritten keys carry their latest
// metadata, so a re-ingested chunk moves to its new labels.
func (e *Engine) rebuildIndex() {
	entries := e.store.Entries()
	chunks := make([]models.Chunk, len(entries))
	for i, entry := range entries {
		chunks[i] = models.Chunk{ID: entry.Key, Metadata: entry.Metadata}
	}
	e.index.Build(chunks)
	e.logger.Debug("label index rebuilt",
		zap.Int("entries", len(entries)),
		zap.Int("labels", e.index.Len()))
}

// Search validates query and runs it. Narrowing is skipped when the query disables it.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	e.applyDefaults(query)
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	metric, err := vector.MetricByName(query.Metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	var routed *router.Routed
	if query.NarrowEnabled() {
		routed, err = e.router.RouteDetailed(ctx, query.Query, query.Limit, metric)
	} else {
		routed, err = e.router.SearchAll(ctx, query.Query, query.Limit, metric)
	}
	if err != nil {
		return nil, err
	}

	response := &models.SearchResponse{
		Query:      query.Query,
		Metric:     query.Metric,
		Labels:     routed.Labels,
		Narrowed:   routed.Narrowed,
		Candidates: routed.Candidates,
		Total:      len(routed.Results),
	}
	if query.KeysOnly {
		response.Keys = make([]string, len(routed.Results))
		for i, r := range routed.Results {
			response.Keys[i] = r.Key
		}
	} else {
		response.Results = e.hydrate(routed.Results)
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// applyDefaults fills the limit and metric from the engine config and caps the limit.
func (e *Engine) applyDefaults(query *models.SearchQuery) {
	if query.Limit <= 0 {
		query.Limit = e.config.DefaultLimit
	}
	if e.config.MaxLimit > 0 && query.Limit > e.config.MaxLimit {
		query.Limit = e.config.MaxLimit
	}
	if query.Metric == "" {
		query.Metric = e.config.Metric
	}
}

func (e *Engine) hydrate(results []vector.Result) []*models.SearchResult {
	e.textMu.RLock()
	defer e.textMu.RUnlock()
	out := make([]*models.SearchResult, 0, len(results))
	for i, r := range results {
		res := &models.SearchResult{Key: r.Key, Score: r.Score, Rank: i + 1, Text: e.texts[r.Key]}
		if entry, ok := e.store.Entry(r.Key); ok {
			res.Chapter = entry.Metadata[models.MetaChapter]
			res.Section = entry.Metadata[models.MetaSection]
		}
		out = append(out, res)
	}
	return out
}

// Entry returns the stored entry for key.
func (e *Engine) Entry(key string) (vector.Entry, bool) {
	return e.store.Entry(key)
}

// Labels returns every indexed label with its key count.
func (e *Engine) Labels() []models.LabelCount {
	return e.index.Labels()
}

// Status reports the store and index sizes.
func (e *Engine) Status() Status {
	return Status{
		Entries:    e.store.Len(),
		Dimensions: e.store.Dimensions(),
		Labels:     e.index.Len(),
		Narrowing:  e.matcher != nil,
	}
}
