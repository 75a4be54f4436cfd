package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/integration/common"
	pkghttp "github.com/futig/rag-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Connector speaks the OpenAI chat completions protocol. DeepSeek and most gateways accept it too.
type Connector struct {
	name        string
	model       string
	temperature float64
	maxTokens   int
	connector   *pkghttp.Connector
}

// ConnectorParams selects the flavour and model of an OpenAI-compatible backend
type ConnectorParams struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	HTTP        config.HTTPClientConfig
}

func NewConnector(p ConnectorParams) *Connector {
	return &Connector{
		name:        p.Provider,
		model:       p.Model,
		temperature: p.Temperature,
		maxTokens:   p.MaxTokens,
		connector:   common.NewBaseConnector(p.Provider, p.HTTP),
	}
}

func (c *Connector) Name() string {
	return c.name
}

// Generate sends one system and one user message and returns the first choice
func (c *Connector) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	ctxzap.Debug(ctx, "requesting chat completion", zap.String("provider", c.name), zap.String("model", c.model))

	req := &entity.ChatCompletionRequest{
		Model: c.model,
		Messages: []entity.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var resp entity.ChatCompletionResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, "/chat/completions", req, &resp); err != nil {
		return "", common.ClassifyHTTPError(entity.ErrGenerationProvider, c.name+" chat completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", entity.ErrGenerationProvider, c.name)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: %s returned an empty answer", entity.ErrGenerationProvider, c.name)
	}

	if resp.Usage != nil {
		ctxzap.Debug(ctx, "chat completion done",
			zap.String("provider", c.name),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		)
	}

	return answer, nil
}

func (c *Connector) Ping(ctx context.Context) error {
	var resp entity.ModelListResponse
	if err := c.connector.DoRequest(ctx, http.MethodGet, "/models", nil, &resp); err != nil {
		return common.ClassifyHTTPError(entity.ErrGenerationProvider, c.name+" list models", err)
	}
	return nil
}
