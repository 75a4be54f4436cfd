package logger

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger. Local environments get a human readable console encoder.
func New(level, environment string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if environment == "local" || environment == "dev" || environment == "development" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// AddFields adds fields to the logger in context and returns new context
func AddFields(ctx context.Context, fields ...zap.Field) context.Context {
	logger := ctxzap.Extract(ctx)
	return ctxzap.ToContext(ctx, logger.With(fields...))
}

// WithAction adds "action" field to context logger to describe the flow
func WithAction(ctx context.Context, action string) context.Context {
	logger := ctxzap.Extract(ctx)
	return ctxzap.ToContext(ctx, logger.With(zap.String("action", action)))
}

// Detach returns a background context carrying the logger of ctx.
// Used for cleanup that must run after the request context is cancelled.
func Detach(ctx context.Context) context.Context {
	return ctxzap.ToContext(context.Background(), ctxzap.Extract(ctx))
}
