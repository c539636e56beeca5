// Package config provides configuration loading and structs for the shiori server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Labels    LabelsConfig    `yaml:"labels"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds the catalog path and the optional Redis embedding cache.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	// RedisURL enables the shared embedding cache, e.g. "redis://localhost:6379/0".
	RedisURL string        `yaml:"redis_url"`
	RedisTTL time.Duration `yaml:"redis_ttl"`
}

// Embedding providers.
const (
	ProviderMock   = "mock"
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
)

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`

	// onnx
	ModelPath string `yaml:"model_path"`
	MaxTokens int    `yaml:"max_tokens"`

	// openai
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	BatchSize   int           `yaml:"batch_size"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// APIKey returns the key from the environment variable named by APIKeyEnv.
func (e EmbeddingConfig) APIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// SearchConfig holds search and chunking settings.
type SearchConfig struct {
	DefaultLimit int    `yaml:"default_limit"`
	MaxLimit     int    `yaml:"max_limit"`
	Metric       string `yaml:"metric"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	// NumberedHeadings treats "1 Title" and "1.2 Title" lines as chapter and section headings.
	NumberedHeadings bool     `yaml:"numbered_headings"`
	Extensions       []string `yaml:"extensions"`
}

// Label matchers.
const (
	MatcherNone    = "none"
	MatcherLLM     = "llm"
	MatcherKeyword = "keyword"
)

// LabelsConfig configures the label matcher used to narrow searches.
type LabelsConfig struct {
	Matcher string `yaml:"matcher"`
	TOCPath string `yaml:"toc_path"`

	// llm
	Model         string  `yaml:"model"`
	MinConfidence float64 `yaml:"min_confidence"`
	MaxDistance   int     `yaml:"max_distance"`

	// keyword
	MaxLabels int     `yaml:"max_labels"`
	MinScore  float64 `yaml:"min_score"`
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Labels.TOCPath = expandPath(cfg.Labels.TOCPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects unknown provider, matcher and metric names.
func Validate(cfg *Config) error {
	switch cfg.Embedding.Provider {
	case ProviderMock, ProviderONNX, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	switch cfg.Labels.Matcher {
	case MatcherNone, MatcherLLM, MatcherKeyword:
	default:
		return fmt.Errorf("unknown label matcher %q", cfg.Labels.Matcher)
	}
	if cfg.Labels.Matcher != MatcherNone && cfg.Labels.TOCPath == "" {
		return fmt.Errorf("labels.toc_path is required for the %s matcher", cfg.Labels.Matcher)
	}
	switch cfg.Search.Metric {
	case "cosine", "dot", "euclidean":
	default:
		return fmt.Errorf("unknown metric %q", cfg.Search.Metric)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths and ":memory:" are kept.
func expandPath(path string, configDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
