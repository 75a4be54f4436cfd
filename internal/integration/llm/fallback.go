package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// FallbackProvider tries the primary provider first and the secondary one when it fails
type FallbackProvider struct {
	primary   Provider
	secondary Provider
}

func NewFallbackProvider(primary, secondary Provider) *FallbackProvider {
	return &FallbackProvider{primary: primary, secondary: secondary}
}

func (f *FallbackProvider) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *FallbackProvider) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	answer, err := f.primary.Generate(ctx, systemPrompt, prompt)
	if err == nil {
		return answer, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	ctxzap.Warn(ctx, "primary chat provider failed, using fallback",
		zap.String("primary", f.primary.Name()),
		zap.String("fallback", f.secondary.Name()),
		zap.Error(err),
	)

	answer, fallbackErr := f.secondary.Generate(ctx, systemPrompt, prompt)
	if fallbackErr != nil {
		return "", joinFailures(err, fallbackErr)
	}

	return answer, nil
}

// joinFailures reports both failures. The result is permanent only when neither failure is transient.
func joinFailures(primaryErr, fallbackErr error) error {
	joined := fmt.Errorf("%w: %w", entity.ErrGenerationProvider,
		errors.Join(unwrapPermanent(primaryErr), unwrapPermanent(fallbackErr)))
	if entity.IsTransient(primaryErr) || entity.IsTransient(fallbackErr) {
		return joined
	}
	return entity.Permanent(joined)
}

func unwrapPermanent(err error) error {
	var perm *entity.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// Ping succeeds when either provider is reachable
func (f *FallbackProvider) Ping(ctx context.Context) error {
	err := f.primary.Ping(ctx)
	if err == nil {
		return nil
	}
	if fallbackErr := f.secondary.Ping(ctx); fallbackErr != nil {
		return errors.Join(err, fallbackErr)
	}
	return nil
}
