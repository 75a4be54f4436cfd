package embedding

import (
	"context"
	"fmt"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/integration/common"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider embeds through the Gemini BatchEmbedContents API
type GeminiProvider struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

func NewGeminiProvider(ctx context.Context, cfg config.EmbeddingConfig) (*GeminiProvider, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.Token)}
	if cfg.Url != "" {
		opts = append(opts, option.WithEndpoint(cfg.Url))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %v", entity.ErrConfig, err)
	}

	return &GeminiProvider{
		client: client,
		model:  client.EmbeddingModel(cfg.Model),
	}, nil
}

func (p *GeminiProvider) Name() string {
	return config.ProviderGemini
}

func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	batch := p.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := p.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, common.ClassifyGoogleError(entity.ErrEmbeddingProvider, "batch embed contents", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", entity.ErrEmbeddingProvider, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("%w: empty embedding at position %d", entity.ErrEmbeddingProvider, i)
		}
		vectors[i] = e.Values
	}

	return vectors, nil
}

func (p *GeminiProvider) Ping(ctx context.Context) error {
	if _, err := p.model.Info(ctx); err != nil {
		return common.ClassifyGoogleError(entity.ErrEmbeddingProvider, "get model", err)
	}
	return nil
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}
