package config

import (
	"strings"
	"testing"
	"time"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ES_ADDRESSES", "http://es-1:9200,http://es-2:9200")

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, 3000, cfg.ChunkCfg.Size)
	assert.Equal(t, 500, cfg.ChunkCfg.Overlap)
	assert.Equal(t, 5, cfg.DefaultTopK)
	assert.Equal(t, ProviderOpenAI, cfg.EmbeddingCfg.Provider)
	assert.Equal(t, 3072, cfg.EmbeddingCfg.Dimensions)
	assert.EqualValues(t, 3, cfg.EmbeddingCfg.Retry.Attempts)
	assert.Equal(t, []string{"http://es-1:9200", "http://es-2:9200"}, cfg.StoreCfg.Addresses)
	assert.Equal(t, "rag_chunks", cfg.StoreCfg.Index)
	assert.Empty(t, cfg.ChatCfg.Fallback.Provider)
}

func TestLoad_NestedPrefixes(t *testing.T) {
	t.Setenv("CHAT_PROVIDER", "deepseek")
	t.Setenv("CHAT_FALLBACK_PROVIDER", "gemini")
	t.Setenv("CHAT_FALLBACK_TOKEN", "secret")
	t.Setenv("EMBEDDING_CACHE_REDIS_ADDR", "localhost:6379")
	t.Setenv("ES_RETRY_ATTEMPTS", "5")

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, ProviderDeepSeek, cfg.ChatCfg.Provider)
	assert.Equal(t, ProviderGemini, cfg.ChatCfg.Fallback.Provider)
	assert.Equal(t, "secret", cfg.ChatCfg.Fallback.Token)
	assert.Equal(t, "localhost:6379", cfg.EmbeddingCfg.Cache.RedisAddr)
	assert.EqualValues(t, 5, cfg.StoreCfg.Retry.Attempts)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "large")

	_, err := Load("test")
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrConfig)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("test")
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		problem string
	}{
		{"overlap equals size", func(c *Config) { c.ChunkCfg.Overlap = c.ChunkCfg.Size }, "CHUNK_OVERLAP"},
		{"negative overlap", func(c *Config) { c.ChunkCfg.Overlap = -1 }, "CHUNK_OVERLAP"},
		{"zero chunk size", func(c *Config) { c.ChunkCfg.Size = 0 }, "CHUNK_SIZE"},
		{"default top_k above max", func(c *Config) { c.DefaultTopK = c.MaxTopK + 1 }, "DEFAULT_TOP_K"},
		{"unknown embedding provider", func(c *Config) { c.EmbeddingCfg.Provider = "deepseek" }, "EMBEDDING_PROVIDER"},
		{"unknown chat provider", func(c *Config) { c.ChatCfg.Provider = "claude" }, "CHAT_PROVIDER"},
		{"unknown fallback", func(c *Config) { c.ChatCfg.Fallback.Provider = "x" }, "CHAT_FALLBACK_PROVIDER"},
		{"input bound below chunk", func(c *Config) { c.EmbeddingCfg.MaxInputChars = c.ChunkCfg.Size - 1 }, "EMBEDDING_MAX_INPUT_CHARS"},
		{"no retry attempts", func(c *Config) { c.ChatCfg.Retry.Attempts = 0 }, "CHAT_RETRY_ATTEMPTS"},
		{"negative jitter", func(c *Config) { c.EmbeddingCfg.Retry.MaxJitter = -time.Millisecond }, "EMBEDDING_RETRY_MAX_JITTER"},
		{"no es addresses", func(c *Config) { c.StoreCfg.Addresses = nil }, "ES_ADDRESSES"},
		{"zero ingest concurrency", func(c *Config) { c.IngestConcurrency = 0 }, "INGEST_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, entity.ErrConfig)
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig(t)
	cfg.ChunkCfg.Overlap = -1
	cfg.ChatCfg.Provider = ""
	cfg.StoreCfg.Index = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHUNK_OVERLAP")
	assert.Contains(t, err.Error(), "CHAT_PROVIDER")
	assert.Contains(t, err.Error(), "ES_INDEX")
}

func TestValidate_RetryProblemsInStableOrder(t *testing.T) {
	cfg := validConfig(t)
	cfg.EmbeddingCfg.Retry.Attempts = 0
	cfg.ChatCfg.Retry.Attempts = 0
	cfg.StoreCfg.Retry.Attempts = 0

	first := Validate(cfg)
	require.Error(t, first)
	msg := first.Error()
	assert.Less(t, strings.Index(msg, "EMBEDDING_RETRY"), strings.Index(msg, "CHAT_RETRY"))
	assert.Less(t, strings.Index(msg, "CHAT_RETRY"), strings.Index(msg, "ES_RETRY"))

	for range 20 {
		assert.Equal(t, msg, Validate(cfg).Error())
	}
}

func TestValidate_ZeroJitterAllowed(t *testing.T) {
	cfg := validConfig(t)
	cfg.EmbeddingCfg.Retry.MaxJitter = 0
	cfg.ChatCfg.Retry.MaxJitter = 0
	cfg.StoreCfg.Retry.MaxJitter = 0

	assert.NoError(t, Validate(cfg))
}

func TestValidate_MocksWithoutElasticsearch(t *testing.T) {
	cfg := validConfig(t)
	cfg.EnableMocks = true
	cfg.StoreCfg.Addresses = nil

	assert.NoError(t, Validate(cfg))
}

func TestGetEnvFile(t *testing.T) {
	assert.Equal(t, ".env.prod", getEnvFile("production"))
	assert.Equal(t, ".env.local", getEnvFile("dev"))
	assert.Equal(t, ".env.staging", getEnvFile("staging"))
}
