package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/rag-backend/internal/api"
	ragapi "github.com/futig/rag-backend/internal/api/rag"
	"github.com/futig/rag-backend/internal/config"
	pkgLogger "github.com/futig/rag-backend/internal/pkg/logger"
	"github.com/futig/rag-backend/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Build loads the configuration and assembles the HTTP application
func Build() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := pkgLogger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
		zap.Bool("mocks", cfg.EnableMocks),
	)

	ctx := ctxzap.ToContext(context.Background(), logger)

	pipeline, err := BuildPipeline(ctx, cfg, logger, PipelineOptions{})
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	ragHandler := ragapi.NewHandler(pipeline.Usecase, cfg.FileUploadCfg, validator.NewValidator(cfg.FileUploadCfg))
	logger.Info("API handlers initialized")

	router := api.SetupRouter(api.RouterConfig{
		HandlerTimeout:     cfg.HandlerTimeout,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, ragHandler, logger)
	logger.Info("HTTP router configured")

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.HandlerTimeout,
		WriteTimeout:      cfg.HandlerTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Application built successfully", zap.String("environment", cfg.Environment))

	return &App{
		server:          server,
		pipeline:        pipeline,
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}
