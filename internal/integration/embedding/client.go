package embedding

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	pkgRetry "github.com/futig/rag-backend/internal/pkg/retry"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Client batches texts, embeds batches in parallel with retries and checks the result shape
type Client struct {
	provider      Provider
	model         string
	dimensions    int
	batchSize     int
	concurrency   int
	maxInputChars int
	retry         pkgRetry.RetryConfig
}

func NewClient(provider Provider, cfg config.EmbeddingConfig) *Client {
	return &Client{
		provider:      provider,
		model:         cfg.Model,
		dimensions:    cfg.Dimensions,
		batchSize:     max(cfg.BatchSize, 1),
		concurrency:   max(cfg.Concurrency, 1),
		maxInputChars: cfg.MaxInputChars,
		retry:         cfg.Retry,
	}
}

// Dimensions is the vector size every result is checked against
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Model identifies the embedding space, used for cache keys
func (c *Client) Model() string {
	return c.provider.Name() + "/" + c.model
}

// Embed returns one vector per text, aligned by position
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	for i, t := range texts {
		if c.maxInputChars > 0 && utf8.RuneCountInString(t) > c.maxInputChars {
			return nil, fmt.Errorf("%w: text %d has %d characters, limit is %d",
				entity.ErrInputTooLarge, i, utf8.RuneCountInString(t), c.maxInputChars)
		}
	}

	start := time.Now()
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	batches := 0
	for from := 0; from < len(texts); from += c.batchSize {
		to := min(from+c.batchSize, len(texts))
		batches++

		g.Go(func() error {
			batch, err := c.embedBatch(gctx, texts[from:to])
			if err != nil {
				return err
			}
			// Batches write disjoint ranges
			copy(vectors[from:to], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ctxzap.Debug(ctx, "texts embedded",
		zap.String("provider", c.provider.Name()),
		zap.Int("texts", len(texts)),
		zap.Int("batches", batches),
		zap.Duration("duration", time.Since(start)),
	)

	return vectors, nil
}

// EmbedQuery embeds a single question
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Ping checks the provider is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.provider.Ping(ctx)
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := pkgRetry.Do(ctx, c.retry, "embed batch", entity.IsTransient,
		func(ctx context.Context) ([][]float32, error) {
			return c.provider.Embed(ctx, texts)
		})
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", entity.ErrEmbeddingProvider, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != c.dimensions {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				entity.ErrDimensionMismatch, i, len(v), c.dimensions)
		}
	}

	return vectors, nil
}
