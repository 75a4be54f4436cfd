package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/futig/rag-backend/internal/config"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockProvider produces deterministic bag-of-words vectors.
// Texts sharing words get a positive cosine similarity, so retrieval behaves sensibly offline.
type MockProvider struct {
	dimensions int
}

func NewMockProvider(dimensions int) *MockProvider {
	return &MockProvider{dimensions: dimensions}
}

func (m *MockProvider) Name() string {
	return config.ProviderMock
}

func (m *MockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctxzap.Debug(ctx, "[MOCK] embedding texts", zap.Int("count", len(texts)))

	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = m.vector(t)
	}
	return vectors, nil
}

func (m *MockProvider) Ping(context.Context) error {
	return nil
}

func (m *MockProvider) vector(text string) []float32 {
	v := make([]float32, m.dimensions)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		// Zero vectors are rejected by cosine indexes
		words = []string{text}
	}

	for _, w := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum64()
		v[sum%uint64(m.dimensions)] += 1
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}

	return v
}
