package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/futig/rag-backend/internal/config"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// VectorCache stores question embeddings. A miss is (nil, false, nil).
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vector []float32) error
}

// CachedClient memoizes EmbedQuery. Cache failures are logged and never fail the request.
type CachedClient struct {
	*Client
	cache VectorCache
}

func NewCachedClient(client *Client, cache VectorCache) *CachedClient {
	return &CachedClient{Client: client, cache: cache}
}

func (c *CachedClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.Model(), text)

	vector, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		ctxzap.Warn(ctx, "embedding cache read failed", zap.Error(err))
	} else if ok && len(vector) == c.Dimensions() {
		ctxzap.Debug(ctx, "embedding cache hit")
		return vector, nil
	}

	vector, err = c.Client.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, vector); err != nil {
		ctxzap.Warn(ctx, "embedding cache write failed", zap.Error(err))
	}

	return vector, nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// MemoryCache keeps vectors in process with expiry
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(ttl, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(ttl, cleanupInterval)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	vector, ok := v.([]float32)
	return vector, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, vector []float32) error {
	m.store.SetDefault(key, vector)
	return nil
}

// RedisCache shares vectors between replicas
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(cfg config.EmbeddingCacheConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}),
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	vector, err := decodeVector(raw)
	if err != nil {
		return nil, false, err
	}
	return vector, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, vector []float32) error {
	if err := r.client.Set(ctx, r.prefix+key, encodeVector(vector), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Vectors are stored as little-endian float32 words
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector of %d bytes", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
