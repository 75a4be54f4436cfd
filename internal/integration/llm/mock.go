package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/rag-backend/internal/config"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockProvider answers with the first source block of the prompt, for offline runs
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Name() string {
	return config.ProviderMock
}

func (m *MockProvider) Generate(ctx context.Context, _, prompt string) (string, error) {
	ctxzap.Info(ctx, "[MOCK] generating answer", zap.Int("prompt_length", len(prompt)))

	sources := strings.Count(prompt, "\n[")
	if strings.HasPrefix(prompt, "[") {
		sources++
	}

	return fmt.Sprintf("[MOCK] Answer based on %d source(s). See [1] for details.", sources), nil
}

func (m *MockProvider) Ping(context.Context) error {
	return nil
}
