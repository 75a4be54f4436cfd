package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/futig/rag-backend/internal/entity"
	pkgRetry "github.com/futig/rag-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Supported provider names
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
	ProviderMock     = "mock"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr         string        `env:"SERVER_ADDR" envDefault:":8000"`
	HandlerTimeout     time.Duration `env:"HANDLER_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	IngestConcurrency  int           `env:"INGEST_CONCURRENCY" envDefault:"4"`

	// Database configuration. The document registry falls back to memory when DATABASE_URL is empty.
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// External service configurations
	EmbeddingCfg EmbeddingConfig     `envPrefix:"EMBEDDING_"`
	ChatCfg      ChatConfig          `envPrefix:"CHAT_"`
	StoreCfg     ElasticsearchConfig `envPrefix:"ES_"`

	// Retrieval configuration
	ChunkCfg    ChunkConfig
	DefaultTopK int `env:"DEFAULT_TOP_K" envDefault:"5"`
	MaxTopK     int `env:"MAX_TOP_K" envDefault:"50"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Environment (set from flag, not from env var)
	Environment string
}

// HTTPClientConfig configures the outbound HTTP client of a provider. Token is the API key.
type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

type EmbeddingConfig struct {
	HTTPClientConfig
	Provider      string               `env:"PROVIDER" envDefault:"openai"`
	Model         string               `env:"MODEL" envDefault:"text-embedding-3-large"`
	Dimensions    int                  `env:"DIMENSIONS" envDefault:"3072"`
	BatchSize     int                  `env:"BATCH_SIZE" envDefault:"100"`
	MaxInputChars int                  `env:"MAX_INPUT_CHARS" envDefault:"24000"`
	Concurrency   int                  `env:"CONCURRENCY" envDefault:"4"`
	Retry         pkgRetry.RetryConfig `envPrefix:"RETRY_"`
	Cache         EmbeddingCacheConfig `envPrefix:"CACHE_"`
}

// EmbeddingCacheConfig configures memoization of question embeddings.
// A non-empty RedisAddr switches the backend from in-process to Redis.
type EmbeddingCacheConfig struct {
	Enabled         bool          `env:"ENABLED" envDefault:"true"`
	TTL             time.Duration `env:"TTL" envDefault:"24h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"10m"`
	KeyPrefix       string        `env:"KEY_PREFIX" envDefault:"emb:"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
}

type ChatConfig struct {
	HTTPClientConfig
	Provider    string               `env:"PROVIDER" envDefault:"openai"`
	Model       string               `env:"MODEL" envDefault:"gpt-4o"`
	Temperature float64              `env:"TEMPERATURE" envDefault:"0"`
	MaxTokens   int                  `env:"MAX_TOKENS" envDefault:"0"`
	Retry       pkgRetry.RetryConfig `envPrefix:"RETRY_"`
	Fallback    ChatFallbackConfig   `envPrefix:"FALLBACK_"`
}

// ChatFallbackConfig is the secondary chat provider tried when the primary fails.
// Disabled when Provider is empty.
type ChatFallbackConfig struct {
	HTTPClientConfig
	Provider string `env:"PROVIDER"`
	Model    string `env:"MODEL" envDefault:"deepseek-chat"`
}

type ElasticsearchConfig struct {
	Addresses           []string             `env:"ADDRESSES" envSeparator:"," envDefault:"http://localhost:9200"`
	Index               string               `env:"INDEX" envDefault:"rag_chunks"`
	Username            string               `env:"USERNAME"`
	Password            string               `env:"PASSWORD"`
	APIKey              string               `env:"API_KEY"`
	InsecureSkipVerify  bool                 `env:"INSECURE_SKIP_VERIFY" envDefault:"false"`
	NumCandidatesFactor int                  `env:"NUM_CANDIDATES_FACTOR" envDefault:"10"`
	Retry               pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type ChunkConfig struct {
	Size    int `env:"CHUNK_SIZE" envDefault:"3000"`
	Overlap int `env:"CHUNK_OVERLAP" envDefault:"500"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"26214400"`   // 25 MiB
	MaxTotalSize  int64 `env:"MAX_TOTAL_SIZE" envDefault:"104857600"` // 100 MiB
	MaxFileCount  int   `env:"MAX_FILE_COUNT" envDefault:"16"`
	MaxPageCount  int   `env:"MAX_PAGE_COUNT" envDefault:"500"`
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"` // 32 MiB kept in memory
}

// LoadConfig reads the -env flag, the matching .env file and the process environment
func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	return Load(*envFlag)
}

// Load builds the configuration for the given environment name without touching flags
func Load(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrConfig, err)
	}

	cfg.Environment = environment

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints. All violations are reported at once.
func Validate(cfg *Config) error {
	var problems []string

	if cfg.ChunkCfg.Size < 1 {
		problems = append(problems, fmt.Sprintf("CHUNK_SIZE must be positive, got %d", cfg.ChunkCfg.Size))
	}
	if cfg.ChunkCfg.Overlap < 0 || cfg.ChunkCfg.Overlap >= cfg.ChunkCfg.Size {
		problems = append(problems, fmt.Sprintf("CHUNK_OVERLAP must satisfy 0 <= overlap < CHUNK_SIZE(%d), got %d", cfg.ChunkCfg.Size, cfg.ChunkCfg.Overlap))
	}

	if cfg.DefaultTopK < 1 || cfg.DefaultTopK > cfg.MaxTopK {
		problems = append(problems, fmt.Sprintf("DEFAULT_TOP_K must be between 1 and MAX_TOP_K(%d), got %d", cfg.MaxTopK, cfg.DefaultTopK))
	}

	if cfg.IngestConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("INGEST_CONCURRENCY must be positive, got %d", cfg.IngestConcurrency))
	}

	// Validate Embedding configuration
	switch cfg.EmbeddingCfg.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderMock:
	default:
		problems = append(problems, fmt.Sprintf("EMBEDDING_PROVIDER must be one of openai, gemini, mock, got %q", cfg.EmbeddingCfg.Provider))
	}
	if cfg.EmbeddingCfg.Dimensions < 1 {
		problems = append(problems, fmt.Sprintf("EMBEDDING_DIMENSIONS must be positive, got %d", cfg.EmbeddingCfg.Dimensions))
	}
	if cfg.EmbeddingCfg.BatchSize < 1 || cfg.EmbeddingCfg.BatchSize > 2048 {
		problems = append(problems, fmt.Sprintf("EMBEDDING_BATCH_SIZE must be between 1 and 2048, got %d", cfg.EmbeddingCfg.BatchSize))
	}
	if cfg.EmbeddingCfg.Concurrency < 1 || cfg.EmbeddingCfg.Concurrency > 64 {
		problems = append(problems, fmt.Sprintf("EMBEDDING_CONCURRENCY must be between 1 and 64, got %d", cfg.EmbeddingCfg.Concurrency))
	}
	if cfg.EmbeddingCfg.MaxInputChars < cfg.ChunkCfg.Size {
		problems = append(problems, fmt.Sprintf("EMBEDDING_MAX_INPUT_CHARS(%d) must not be below CHUNK_SIZE(%d)", cfg.EmbeddingCfg.MaxInputChars, cfg.ChunkCfg.Size))
	}

	// Validate Chat configuration
	if !isChatProvider(cfg.ChatCfg.Provider) {
		problems = append(problems, fmt.Sprintf("CHAT_PROVIDER must be one of openai, deepseek, gemini, mock, got %q", cfg.ChatCfg.Provider))
	}
	if cfg.ChatCfg.Fallback.Provider != "" && !isChatProvider(cfg.ChatCfg.Fallback.Provider) {
		problems = append(problems, fmt.Sprintf("CHAT_FALLBACK_PROVIDER must be one of openai, deepseek, gemini, mock, got %q", cfg.ChatCfg.Fallback.Provider))
	}

	for _, policy := range []struct {
		name string
		rc   pkgRetry.RetryConfig
	}{
		{"EMBEDDING_RETRY", cfg.EmbeddingCfg.Retry},
		{"CHAT_RETRY", cfg.ChatCfg.Retry},
		{"ES_RETRY", cfg.StoreCfg.Retry},
	} {
		rc := policy.rc
		if rc.Attempts < 1 || rc.Attempts > 10 {
			problems = append(problems, fmt.Sprintf("%s_ATTEMPTS must be between 1 and 10, got %d", policy.name, rc.Attempts))
		}
		if rc.Delay < 0 || rc.MaxDelay < 0 || rc.MaxJitter < 0 {
			problems = append(problems, fmt.Sprintf("%s_DELAY, %s_MAX_DELAY and %s_MAX_JITTER must not be negative", policy.name, policy.name, policy.name))
		}
	}

	// Validate Elasticsearch configuration
	if len(cfg.StoreCfg.Addresses) == 0 && !cfg.EnableMocks {
		problems = append(problems, "ES_ADDRESSES must not be empty")
	}
	if cfg.StoreCfg.Index == "" {
		problems = append(problems, "ES_INDEX must not be empty")
	}
	if cfg.StoreCfg.NumCandidatesFactor < 1 {
		problems = append(problems, fmt.Sprintf("ES_NUM_CANDIDATES_FACTOR must be positive, got %d", cfg.StoreCfg.NumCandidatesFactor))
	}

	// Validate Database configuration
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		problems = append(problems, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		problems = append(problems, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	// Validate upload bounds
	if cfg.FileUploadCfg.MaxFileSize < 1 || cfg.FileUploadCfg.MaxFileCount < 1 || cfg.FileUploadCfg.MaxPageCount < 1 {
		problems = append(problems, "FILE_UPLOAD_MAX_FILE_SIZE, FILE_UPLOAD_MAX_FILE_COUNT and FILE_UPLOAD_MAX_PAGE_COUNT must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n  - %s", entity.ErrConfig, strings.Join(problems, "\n  - "))
	}

	return nil
}

func isChatProvider(name string) bool {
	switch name {
	case ProviderOpenAI, ProviderDeepSeek, ProviderGemini, ProviderMock:
		return true
	}
	return false
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
