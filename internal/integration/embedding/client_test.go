package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	pkgRetry "github.com/futig/rag-backend/internal/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu        sync.Mutex
	calls     int
	batches   [][]string
	failFirst int
	failWith  error
	dims      int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.batches = append(f.batches, texts)
	f.mu.Unlock()

	if call <= f.failFirst {
		return nil, f.failWith
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dims)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}

func (f *fakeProvider) Ping(context.Context) error { return nil }

func testConfig(dims int) config.EmbeddingConfig {
	return config.EmbeddingConfig{
		Model:         "test-model",
		Dimensions:    dims,
		BatchSize:     100,
		MaxInputChars: 50,
		Concurrency:   4,
		Retry: pkgRetry.RetryConfig{
			Attempts: 3,
			Delay:    time.Millisecond,
			MaxDelay: 5 * time.Millisecond,
			Timeout:  time.Second,
		},
	}
}

func TestEmbed_RetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{
		failFirst: 2,
		failWith:  fmt.Errorf("%w: rate limited", entity.ErrEmbeddingProvider),
		dims:      4,
	}
	client := NewClient(provider, testConfig(4))

	vectors, err := client.Embed(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, 3, provider.calls)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(2), vectors[1][0])
}

func TestEmbed_GivesUpAfterAttempts(t *testing.T) {
	provider := &fakeProvider{
		failFirst: 10,
		failWith:  fmt.Errorf("%w: unavailable", entity.ErrEmbeddingProvider),
		dims:      4,
	}
	client := NewClient(provider, testConfig(4))

	_, err := client.Embed(context.Background(), []string{"a"})
	require.ErrorIs(t, err, entity.ErrEmbeddingProvider)
	assert.Equal(t, 3, provider.calls)
}

func TestEmbed_PermanentErrorNotRetried(t *testing.T) {
	provider := &fakeProvider{
		failFirst: 10,
		failWith:  entity.Permanent(fmt.Errorf("%w: bad key", entity.ErrEmbeddingProvider)),
		dims:      4,
	}
	client := NewClient(provider, testConfig(4))

	_, err := client.Embed(context.Background(), []string{"a"})
	require.ErrorIs(t, err, entity.ErrEmbeddingProvider)
	assert.Equal(t, 1, provider.calls)
}

func TestEmbed_InputTooLargeSkipsProvider(t *testing.T) {
	provider := &fakeProvider{dims: 4}
	client := NewClient(provider, testConfig(4))

	_, err := client.Embed(context.Background(), []string{"ok", strings.Repeat("я", 51)})
	require.ErrorIs(t, err, entity.ErrInputTooLarge)
	assert.False(t, entity.IsTransient(err))
	assert.Zero(t, provider.calls)
}

func TestEmbed_BatchesAndKeepsOrder(t *testing.T) {
	provider := &fakeProvider{dims: 4}
	client := NewClient(provider, testConfig(4))

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = strings.Repeat("x", i%50+1)
	}

	vectors, err := client.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 250)
	assert.Equal(t, 3, provider.calls)

	sizes := map[int]int{}
	for _, b := range provider.batches {
		sizes[len(b)]++
	}
	assert.Equal(t, map[int]int{100: 2, 50: 1}, sizes)

	for i, v := range vectors {
		assert.Equal(t, float32(i%50+1), v[0], "vector %d", i)
	}
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	provider := &fakeProvider{dims: 3}
	client := NewClient(provider, testConfig(4))

	_, err := client.Embed(context.Background(), []string{"a"})
	require.ErrorIs(t, err, entity.ErrDimensionMismatch)
	assert.False(t, entity.IsTransient(err))
	assert.Equal(t, 1, provider.calls)
}

func TestEmbed_Empty(t *testing.T) {
	provider := &fakeProvider{dims: 4}
	vectors, err := NewClient(provider, testConfig(4)).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, provider.calls)
}

func TestOpenAIProvider(t *testing.T) {
	var status atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if code := int(status.Load()); code != 0 {
			http.Error(w, `{"error":{"message":"nope"}}`, code)
			return
		}

		var req entity.EmbeddingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 2, req.Dimensions)

		// Deliberately out of order
		_ = json.NewEncoder(w).Encode(entity.EmbeddingsResponse{
			Data: []entity.EmbeddingData{
				{Index: 1, Embedding: []float32{0, 1}},
				{Index: 0, Embedding: []float32{1, 0}},
			},
		})
	}))
	defer srv.Close()

	cfg := testConfig(2)
	cfg.Url = srv.URL
	cfg.Token = "key"
	cfg.RequestTimeout = time.Second
	provider := NewOpenAIProvider(cfg)

	vectors, err := provider.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)

	status.Store(http.StatusTooManyRequests)
	_, err = provider.Embed(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, entity.ErrEmbeddingProvider)
	assert.True(t, entity.IsTransient(err))

	status.Store(http.StatusUnauthorized)
	_, err = provider.Embed(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, entity.ErrEmbeddingProvider)
	assert.False(t, entity.IsTransient(err))

	status.Store(http.StatusRequestEntityTooLarge)
	_, err = provider.Embed(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, entity.ErrInputTooLarge)
}

func TestMockProvider_Deterministic(t *testing.T) {
	p := NewMockProvider(32)

	a, err := p.Embed(context.Background(), []string{"refund policy for orders", "refund policy for orders", "..."})
	require.NoError(t, err)
	assert.Equal(t, a[0], a[1])
	assert.Len(t, a[2], 32)

	var norm float32
	for _, x := range a[0] {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

type countingCache struct {
	inner  VectorCache
	failed bool
}

func (c *countingCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	if c.failed {
		return nil, false, errors.New("cache down")
	}
	return c.inner.Get(ctx, key)
}

func (c *countingCache) Set(ctx context.Context, key string, v []float32) error {
	if c.failed {
		return errors.New("cache down")
	}
	return c.inner.Set(ctx, key, v)
}

func TestCachedClient(t *testing.T) {
	provider := &fakeProvider{dims: 4}
	cache := &countingCache{inner: NewMemoryCache(time.Minute, time.Minute)}
	client := NewCachedClient(NewClient(provider, testConfig(4)), cache)

	first, err := client.EmbedQuery(context.Background(), "what is the refund policy?")
	require.NoError(t, err)
	second, err := client.EmbedQuery(context.Background(), "what is the refund policy?")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls)

	cache.failed = true
	_, err = client.EmbedQuery(context.Background(), "what is the refund policy?")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0.5, -1.25, 3e-7}
	decoded, err := decodeVector(encodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, decoded)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
