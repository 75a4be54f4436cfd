package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/integration/common"
	pkghttp "github.com/futig/rag-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// OpenAIProvider talks to any OpenAI-compatible /embeddings endpoint
type OpenAIProvider struct {
	connector  *pkghttp.Connector
	model      string
	dimensions int
}

func NewOpenAIProvider(cfg config.EmbeddingConfig) *OpenAIProvider {
	return &OpenAIProvider{
		connector:  common.NewBaseConnector(config.ProviderOpenAI, cfg.HTTPClientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

func (p *OpenAIProvider) Name() string {
	return config.ProviderOpenAI
}

// Embed sends all texts in one request
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := &entity.EmbeddingsRequest{
		Model:      p.model,
		Input:      texts,
		Dimensions: p.dimensions,
	}

	var resp entity.EmbeddingsResponse
	if err := p.connector.DoRequest(ctx, http.MethodPost, "/embeddings", req, &resp); err != nil {
		return nil, common.ClassifyHTTPError(entity.ErrEmbeddingProvider, "create embeddings", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", entity.ErrEmbeddingProvider, len(resp.Data), len(texts))
	}

	// The API does not promise positional order
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if d.Index != i {
			return nil, fmt.Errorf("%w: embedding index %d out of range", entity.ErrEmbeddingProvider, d.Index)
		}
		vectors[i] = d.Embedding
	}

	if resp.Usage != nil {
		ctxzap.Debug(ctx, "embeddings created",
			zap.String("model", resp.Model),
			zap.Int("inputs", len(texts)),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		)
	}

	return vectors, nil
}

// Ping lists models to verify reachability and credentials
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	var resp entity.ModelListResponse
	if err := p.connector.DoRequest(ctx, http.MethodGet, "/models", nil, &resp); err != nil {
		return common.ClassifyHTTPError(entity.ErrEmbeddingProvider, "list models", err)
	}
	return nil
}
