package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/integration/common"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func NewGeminiProvider(ctx context.Context, p ConnectorParams) (*GeminiProvider, error) {
	opts := []option.ClientOption{option.WithAPIKey(p.HTTP.Token)}
	if p.HTTP.Url != "" {
		opts = append(opts, option.WithEndpoint(p.HTTP.Url))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %v", entity.ErrConfig, err)
	}

	return &GeminiProvider{
		client:      client,
		model:       p.Model,
		temperature: float32(p.Temperature),
		maxTokens:   int32(p.MaxTokens),
	}, nil
}

func (g *GeminiProvider) Name() string {
	return config.ProviderGemini
}

func (g *GeminiProvider) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	model.SetTemperature(g.temperature)
	if g.maxTokens > 0 {
		model.SetMaxOutputTokens(g.maxTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", common.ClassifyGoogleError(entity.ErrGenerationProvider, "gemini generate content", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		// First candidate with content wins
		if sb.Len() > 0 {
			break
		}
	}

	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return "", fmt.Errorf("%w: gemini returned an empty answer", entity.ErrGenerationProvider)
	}

	return answer, nil
}

func (g *GeminiProvider) Ping(ctx context.Context) error {
	if _, err := g.client.GenerativeModel(g.model).Info(ctx); err != nil {
		return common.ClassifyGoogleError(entity.ErrGenerationProvider, "gemini model info", err)
	}
	return nil
}

func (g *GeminiProvider) Close() error {
	return g.client.Close()
}
