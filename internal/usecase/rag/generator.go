package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/integration/llm"
	pkgRetry "github.com/futig/rag-backend/internal/pkg/retry"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const systemPrompt = "You are a helpful assistant that answers questions based on the provided context from PDF documents. " +
	"Answer only from the context. If the context does not contain the answer, say so plainly. " +
	"Cite the sources you used by their bracketed numbers, for example [1]."

// Generator builds the grounded prompt and calls the chat provider
type Generator struct {
	provider llm.Provider
	retry    pkgRetry.RetryConfig
}

func NewGenerator(provider llm.Provider, retry pkgRetry.RetryConfig) *Generator {
	return &Generator{provider: provider, retry: retry}
}

// Generate answers from the retrieved chunks. An empty retrieval gets the fixed
// no-context answer and the provider is not called.
func (g *Generator) Generate(ctx context.Context, question string, retrieval *entity.RetrievalResult) (*entity.Answer, error) {
	if retrieval.Len() == 0 {
		ctxzap.Info(ctx, "no context retrieved, skipping generation")
		return &entity.Answer{
			Text:      entity.NoContextAnswer,
			Retrieval: &entity.RetrievalResult{},
			Grounded:  false,
		}, nil
	}

	prompt := BuildPrompt(question, retrieval)

	text, err := pkgRetry.Do(ctx, g.retry, "generate answer", entity.IsTransient,
		func(ctx context.Context) (string, error) {
			return g.provider.Generate(ctx, systemPrompt, prompt)
		})
	if err != nil {
		if !errors.Is(err, entity.ErrGenerationProvider) {
			err = fmt.Errorf("%w: %v", entity.ErrGenerationProvider, err)
		}
		return nil, err
	}

	ctxzap.Info(ctx, "answer generated",
		zap.String("provider", g.provider.Name()),
		zap.Int("sources", retrieval.Len()),
		zap.Int("answer_length", len(text)),
	)

	return &entity.Answer{
		Text:      text,
		Retrieval: retrieval,
		Grounded:  true,
	}, nil
}

func (g *Generator) Ping(ctx context.Context) error {
	return g.provider.Ping(ctx)
}

// BuildPrompt lists the sources most relevant first, each attributed to its document and pages
func BuildPrompt(question string, retrieval *entity.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString("Answer the question based only on the following context.\n\nContext:\n")

	for i, sc := range retrieval.Chunks {
		c := sc.Chunk
		fmt.Fprintf(&sb, "[%d] %s (document %s, %s):\n%s\n\n",
			i+1, c.Filename, c.DocumentID, formatPages(c.Pages), strings.TrimSpace(c.Text))
	}

	fmt.Fprintf(&sb, "Question: %s\n\nAnswer:", strings.TrimSpace(question))
	return sb.String()
}

func formatPages(pages []int) string {
	switch len(pages) {
	case 0:
		return "page unknown"
	case 1:
		return "page " + strconv.Itoa(pages[0])
	}

	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return "pages " + strings.Join(parts, ", ")
}
