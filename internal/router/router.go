// Package router answers text queries against the vector store, narrowing the
// candidate set to the chunks whose labels the query matches.
package router

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/labelindex"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/vector"
)

// LabelMatcher predicts which chapter and section labels a query is about.
type LabelMatcher interface {
	Match(ctx context.Context, query string) ([]models.Label, error)
}

// MatcherFunc adapts a function to LabelMatcher.
type MatcherFunc func(ctx context.Context, query string) ([]models.Label, error)

// Match calls f.
func (f MatcherFunc) Match(ctx context.Context, query string) ([]models.Label, error) {
	return f(ctx, query)
}

// Routed is the outcome of a routed search.
type Routed struct {
	Results []vector.Result
	// Labels the matcher returned, including ones with no indexed keys.
	Labels []models.Label
	// Narrowed is false when the search fell back to the whole store.
	Narrowed bool
	// Candidates is the size of the restricted candidate set, or the store size on fallback.
	Candidates int
}

// Router composes a store, an embedder, and optionally a label index and matcher.
type Router struct {
	store    *vector.Store
	embedder embedding.Embedder
	index    *labelindex.Index
	matcher  LabelMatcher
	logger   *zap.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithIndex sets the label index used to resolve matched labels.
func WithIndex(idx *labelindex.Index) Option {
	return func(r *Router) { r.index = idx }
}

// WithMatcher sets the label matcher.
func WithMatcher(m LabelMatcher) Option {
	return func(r *Router) { r.matcher = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a router. Without an index or matcher every query searches the whole store.
func New(store *vector.Store, embedder embedding.Embedder, opts ...Option) *Router {
	r := &Router{
		store:    store,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route returns the top k results for query.
func (r *Router) Route(ctx context.Context, query string, k int, metric vector.Metric) ([]vector.Result, error) {
	routed, err := r.RouteDetailed(ctx, query, k, metric)
	if err != nil {
		return nil, err
	}
	return routed.Results, nil
}

// RouteKeys is Route projected to the result keys, in rank order.
func (r *Router) RouteKeys(ctx context.Context, query string, k int, metric vector.Metric) ([]string, error) {
	results, err := r.Route(ctx, query, k, metric)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(results))
	for i, res := range results {
		keys[i] = res.Key
	}
	return keys, nil
}

// RouteDetailed matches labels and embeds the query concurrently, then searches
// the union of the matched labels' keys. When that union is empty it searches
// the whole store. Matcher failures are logged and treated as no labels;
// embedding failures are returned as *embedding.ProviderError.
func (r *Router) RouteDetailed(ctx context.Context, query string, k int, metric vector.Metric) (*Routed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var labels []models.Label
	var qvec []float32
	g, gctx := errgroup.WithContext(ctx)
	if r.narrowing() {
		g.Go(func() error {
			labels = r.match(gctx, query)
			return nil
		})
	}
	g.Go(func() error {
		var err error
		qvec, err = embedding.EmbedOne(gctx, r.embedder, query)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := r.candidates(labels)
	if len(candidates) == 0 {
		results, err := r.store.Search(qvec, k, metric)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("full-store search",
			zap.String("query", query),
			zap.Int("labels", len(labels)),
			zap.Int("results", len(results)))
		return &Routed{Results: results, Labels: labels, Candidates: r.store.Len()}, nil
	}

	results, err := r.store.SearchRestricted(qvec, k, metric, candidates)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("narrowed search",
		zap.String("query", query),
		zap.Int("labels", len(labels)),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)))
	return &Routed{Results: results, Labels: labels, Narrowed: true, Candidates: len(candidates)}, nil
}

// SearchAll embeds query and searches the whole store without consulting the matcher.
func (r *Router) SearchAll(ctx context.Context, query string, k int, metric vector.Metric) (*Routed, error) {
	results, err := r.store.SearchByText(ctx, query, k, metric, r.embedder)
	if err != nil {
		return nil, err
	}
	return &Routed{Results: results, Candidates: r.store.Len()}, nil
}

func (r *Router) narrowing() bool {
	return r.matcher != nil && r.index != nil && r.index.Len() > 0
}

func (r *Router) match(ctx context.Context, query string) []models.Label {
	labels, err := r.matcher.Match(ctx, query)
	if err != nil {
		r.logger.Warn("label matching failed, searching all entries", zap.String("query", query), zap.Error(err))
		return nil
	}
	return labels
}

func (r *Router) candidates(labels []models.Label) []string {
	if r.index == nil || len(labels) == 0 {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, l := range labels {
		for _, key := range r.index.Lookup(l.Category, l.Name) {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	return out
}
