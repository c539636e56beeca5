package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/labels"
	"github.com/hyperjump/shiori/internal/openai"
	"github.com/hyperjump/shiori/internal/router"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/storage"
)

// Components holds initialized services.
type Components struct {
	Storage  *storage.SQLiteStorage
	Embedder embedding.Embedder
	Engine   *search.Engine
	Indexer  *indexer.Indexer
	closers  []func() error
}

// Close releases every component in reverse order of creation.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store
	c.closers = append(c.closers, store.Close)

	embedder, closers, err := buildEmbedder(cfg, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder
	c.closers = append(c.closers, closers...)

	matcher, closer, err := buildMatcher(cfg, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize label matcher: %w", err)
	}
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	engineOpts := []search.Option{search.WithStorage(store), search.WithLogger(logger)}
	if matcher != nil {
		engineOpts = append(engineOpts, search.WithMatcher(matcher))
	}
	c.Engine = search.NewEngine(embedder, &cfg.Search, engineOpts...)
	c.Indexer = indexer.NewIndexer(store, extract.NewExtractor(), &cfg.Search, indexer.WithLogger(logger))
	return c, nil
}

// buildEmbedder creates the configured provider behind an LRU cache and, when
// storage.redis_url is set and reachable, a shared Redis cache.
func buildEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, []func() error, error) {
	var provider embedding.Embedder
	ec := cfg.Embedding
	switch ec.Provider {
	case config.ProviderONNX:
		onnxEmbedder, err := embedding.NewONNXEmbedder(ec.ModelPath, ec.Dimensions, ec.MaxTokens)
		if err != nil {
			logger.Warn("onnx embedder unavailable, using mock embeddings",
				zap.String("model_path", ec.ModelPath), zap.Error(err))
			provider = embedding.NewMockEmbedder(ec.Dimensions)
		} else {
			provider = onnxEmbedder
		}
	case config.ProviderOpenAI:
		client, err := newOpenAIClient(ec)
		if err != nil {
			return nil, nil, err
		}
		provider = embedding.NewOpenAIEmbedder(client, ec.Model, ec.Dimensions,
			embedding.WithBatchSize(ec.BatchSize),
			embedding.WithConcurrency(ec.Concurrency))
	default:
		provider = embedding.NewMockEmbedder(ec.Dimensions)
	}
	closers := []func() error{provider.Close}

	var tiers embedding.TieredCache
	if ec.CacheSize > 0 {
		tiers = append(tiers, embedding.NewEmbeddingCache(ec.CacheSize))
	}
	if cfg.Storage.RedisURL != "" {
		rc, err := newRedisClient(cfg.Storage.RedisURL)
		if err != nil {
			logger.Warn("redis embedding cache disabled", zap.Error(err))
		} else {
			closers = append(closers, rc.Close)
			tiers = append(tiers, embedding.NewRedisCache(rc,
				embedding.WithRedisTTL(cfg.Storage.RedisTTL),
				embedding.WithRedisLogger(logger)))
		}
	}
	if len(tiers) == 0 {
		return provider, closers, nil
	}
	return embedding.NewCachedEmbedder(provider, tiers), closers, nil
}

func newRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rc := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rc, nil
}

func newOpenAIClient(ec config.EmbeddingConfig) (*openai.Client, error) {
	key := ec.APIKey()
	if key == "" {
		return nil, fmt.Errorf("environment variable %s is not set", ec.APIKeyEnv)
	}
	opts := []openai.Option{openai.WithTimeout(ec.Timeout)}
	if ec.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(ec.BaseURL))
	}
	return openai.NewClient(key, opts...), nil
}

// buildMatcher creates the configured label matcher, or nil for "none".
// The returned closer may be nil.
func buildMatcher(cfg *config.Config, logger *zap.Logger) (router.LabelMatcher, func() error, error) {
	lc := cfg.Labels
	if lc.Matcher == config.MatcherNone {
		return nil, nil, nil
	}
	toc, err := labels.LoadTOC(lc.TOCPath)
	if err != nil {
		return nil, nil, err
	}
	switch lc.Matcher {
	case config.MatcherLLM:
		client, err := newOpenAIClient(cfg.Embedding)
		if err != nil {
			return nil, nil, err
		}
		m, err := labels.NewLLMMatcher(client, lc.Model, toc,
			labels.WithMinConfidence(lc.MinConfidence),
			labels.WithMaxDistance(lc.MaxDistance),
			labels.WithLLMLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return m, nil, nil
	case config.MatcherKeyword:
		m, err := labels.NewKeywordMatcher(toc, lc.MaxLabels, lc.MinScore)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown label matcher %q", lc.Matcher)
}
