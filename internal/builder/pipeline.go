package builder

import (
	"context"
	"fmt"

	"github.com/futig/rag-backend/internal/chunker"
	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/extractor"
	"github.com/futig/rag-backend/internal/repository"
	ragUC "github.com/futig/rag-backend/internal/usecase/rag"
	"go.uber.org/zap"
)

// PipelineOptions tunes how the ingestion and answer pipeline is assembled
type PipelineOptions struct {
	// InMemoryStore replaces Elasticsearch with the in-process vector store
	InMemoryStore bool
}

// Pipeline is the assembled RAG usecase together with the resources it holds
type Pipeline struct {
	Usecase *ragUC.RAGUsecase
	closers closers
}

// Close releases provider clients, caches and database connections
func (p *Pipeline) Close() error {
	return p.closers.close()
}

// BuildPipeline wires extractor, chunker, providers, stores and the usecase.
// On error every resource acquired so far is released.
func BuildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts PipelineOptions) (_ *Pipeline, err error) {
	p := &Pipeline{}
	defer func() {
		if err != nil {
			if closeErr := p.Close(); closeErr != nil {
				logger.Warn("Failed to release resources", zap.Error(closeErr))
			}
		}
	}()

	documents, err := setupDocumentRepository(ctx, cfg, logger, &p.closers)
	if err != nil {
		return nil, err
	}

	store, err := setupVectorStore(ctx, cfg, logger, opts.InMemoryStore || cfg.EnableMocks)
	if err != nil {
		return nil, fmt.Errorf("setup vector store: %w", err)
	}

	embedder, err := setupEmbedder(ctx, cfg, logger, &p.closers)
	if err != nil {
		return nil, fmt.Errorf("setup embedder: %w", err)
	}

	chat, err := setupChat(ctx, cfg, logger, &p.closers)
	if err != nil {
		return nil, fmt.Errorf("setup chat: %w", err)
	}

	chunk, err := chunker.New(cfg.ChunkCfg.Size, cfg.ChunkCfg.Overlap)
	if err != nil {
		return nil, fmt.Errorf("setup chunker: %w", err)
	}

	p.Usecase = ragUC.NewUsecase(
		extractor.NewPDFExtractor(cfg.FileUploadCfg.MaxPageCount),
		chunk,
		embedder,
		store,
		documents,
		ragUC.NewGenerator(chat, cfg.ChatCfg.Retry),
		ragUC.Options{
			DefaultTopK:       cfg.DefaultTopK,
			MaxTopK:           cfg.MaxTopK,
			IngestConcurrency: cfg.IngestConcurrency,
		},
	)
	logger.Info("RAG pipeline initialized",
		zap.Int("chunk_size", cfg.ChunkCfg.Size),
		zap.Int("chunk_overlap", cfg.ChunkCfg.Overlap),
		zap.Int("default_top_k", cfg.DefaultTopK),
	)

	return p, nil
}

// setupVectorStore connects to Elasticsearch and makes sure the index matches the embedding dimension
func setupVectorStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, inMemory bool) (repository.VectorStore, error) {
	dims := cfg.EmbeddingCfg.Dimensions

	if inMemory {
		logger.Info("Using in-memory vector store", zap.Int("dimensions", dims))
		return repository.NewVectorMemory(dims), nil
	}

	store, err := repository.NewVectorElastic(cfg.StoreCfg, dims)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure index %q: %w", cfg.StoreCfg.Index, err)
	}

	logger.Info("Elasticsearch vector store ready",
		zap.Strings("addresses", cfg.StoreCfg.Addresses),
		zap.String("index", cfg.StoreCfg.Index),
		zap.Int("dimensions", dims),
	)
	return store, nil
}
