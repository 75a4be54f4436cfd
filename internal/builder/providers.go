package builder

import (
	"context"
	"fmt"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/integration/embedding"
	"github.com/futig/rag-backend/internal/integration/llm"
	ragUC "github.com/futig/rag-backend/internal/usecase/rag"
	"go.uber.org/zap"
)

// setupEmbedder builds the embedding client and wraps it with the question cache when enabled
func setupEmbedder(ctx context.Context, cfg *config.Config, logger *zap.Logger, closers *closers) (ragUC.Embedder, error) {
	embCfg := cfg.EmbeddingCfg

	providerName := embCfg.Provider
	if cfg.EnableMocks {
		providerName = config.ProviderMock
	}

	var provider embedding.Provider
	switch providerName {
	case config.ProviderMock:
		provider = embedding.NewMockProvider(embCfg.Dimensions)
	case config.ProviderOpenAI:
		provider = embedding.NewOpenAIProvider(embCfg)
	case config.ProviderGemini:
		gemini, err := embedding.NewGeminiProvider(ctx, embCfg)
		if err != nil {
			return nil, fmt.Errorf("create gemini embedding provider: %w", err)
		}
		closers.add("gemini embedding client", gemini.Close)
		provider = gemini
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", providerName)
	}

	client := embedding.NewClient(provider, embCfg)
	logger.Info("Embedding client initialized",
		zap.String("provider", providerName),
		zap.String("model", embCfg.Model),
		zap.Int("dimensions", embCfg.Dimensions),
	)

	if !embCfg.Cache.Enabled {
		return client, nil
	}

	var cache embedding.VectorCache
	if embCfg.Cache.RedisAddr != "" {
		redisCache := embedding.NewRedisCache(embCfg.Cache)
		closers.add("redis embedding cache", redisCache.Close)
		cache = redisCache
		logger.Info("Question embedding cache backed by redis", zap.String("addr", embCfg.Cache.RedisAddr))
	} else {
		cache = embedding.NewMemoryCache(embCfg.Cache.TTL, embCfg.Cache.CleanupInterval)
		logger.Info("Question embedding cache kept in memory", zap.Duration("ttl", embCfg.Cache.TTL))
	}

	return embedding.NewCachedClient(client, cache), nil
}

// setupChat builds the chat provider, wrapped with the fallback provider when one is configured
func setupChat(ctx context.Context, cfg *config.Config, logger *zap.Logger, closers *closers) (llm.Provider, error) {
	chatCfg := cfg.ChatCfg

	primaryName := chatCfg.Provider
	if cfg.EnableMocks {
		primaryName = config.ProviderMock
	}

	primary, err := newChatProvider(ctx, llm.ConnectorParams{
		Provider:    primaryName,
		Model:       chatCfg.Model,
		Temperature: chatCfg.Temperature,
		MaxTokens:   chatCfg.MaxTokens,
		HTTP:        chatCfg.HTTPClientConfig,
	}, closers)
	if err != nil {
		return nil, err
	}
	logger.Info("Chat provider initialized", zap.String("provider", primaryName), zap.String("model", chatCfg.Model))

	if cfg.EnableMocks || chatCfg.Fallback.Provider == "" {
		return primary, nil
	}

	secondary, err := newChatProvider(ctx, llm.ConnectorParams{
		Provider:    chatCfg.Fallback.Provider,
		Model:       chatCfg.Fallback.Model,
		Temperature: chatCfg.Temperature,
		MaxTokens:   chatCfg.MaxTokens,
		HTTP:        chatCfg.Fallback.HTTPClientConfig,
	}, closers)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	logger.Info("Fallback chat provider initialized",
		zap.String("provider", chatCfg.Fallback.Provider),
		zap.String("model", chatCfg.Fallback.Model),
	)

	return llm.NewFallbackProvider(primary, secondary), nil
}

func newChatProvider(ctx context.Context, p llm.ConnectorParams, closers *closers) (llm.Provider, error) {
	switch p.Provider {
	case config.ProviderMock:
		return llm.NewMockProvider(), nil
	case config.ProviderOpenAI, config.ProviderDeepSeek:
		return llm.NewConnector(p), nil
	case config.ProviderGemini:
		gemini, err := llm.NewGeminiProvider(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("create gemini chat provider: %w", err)
		}
		closers.add("gemini chat client", gemini.Close)
		return gemini, nil
	default:
		return nil, fmt.Errorf("unsupported chat provider %q", p.Provider)
	}
}
