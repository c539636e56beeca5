package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache keeps embeddings in Redis so they survive restarts and can be shared
// between processes. Keys are {prefix}{sha256(text)}; values are little-endian float32s.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithRedisPrefix sets the key prefix (default "shiori:emb:").
func WithRedisPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) { c.prefix = prefix }
}

// WithRedisTTL sets an expiry on cached embeddings; 0 keeps them forever.
func WithRedisTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisCache) { c.ttl = ttl }
}

// WithRedisLogger sets a logger for backend errors.
func WithRedisLogger(l *zap.Logger) RedisCacheOption {
	return func(c *RedisCache) { c.logger = l }
}

// NewRedisCache creates a cache on top of client. The caller owns the client.
func NewRedisCache(client *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client: client,
		prefix: "shiori:emb:",
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements Cache. Backend errors are logged and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, text string) ([]float32, bool) {
	data, err := c.client.Get(ctx, c.key(text)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis embedding cache get failed", zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, false
	}
	return bytesToFloat32Slice(data), true
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, text string, vec []float32) {
	if err := c.client.Set(ctx, c.key(text), float32SliceToBytes(vec), c.ttl).Err(); err != nil {
		c.logger.Warn("redis embedding cache set failed", zap.Error(err))
	}
}

func (c *RedisCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
