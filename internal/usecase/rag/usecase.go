package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/logger"
	"github.com/futig/rag-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// cleanupTimeout bounds best-effort cleanup that runs after the request context is gone
const cleanupTimeout = 30 * time.Second

// Options holds query bounds and upload parallelism
type Options struct {
	DefaultTopK       int
	MaxTopK           int
	IngestConcurrency int
}

// RAGUsecase orchestrates document ingestion and question answering.
// It keeps no state between requests.
type RAGUsecase struct {
	extractor Extractor
	chunker   Chunker
	embedder  Embedder
	store     repository.VectorStore
	documents repository.DocumentRepository
	generator AnswerGenerator
	opts      Options
}

func NewUsecase(
	extractor Extractor,
	chunker Chunker,
	embedder Embedder,
	store repository.VectorStore,
	documents repository.DocumentRepository,
	generator AnswerGenerator,
	opts Options,
) *RAGUsecase {
	if opts.IngestConcurrency < 1 {
		opts.IngestConcurrency = 4
	}
	return &RAGUsecase{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		documents: documents,
		generator: generator,
		opts:      opts,
	}
}

// Ingest runs one document through extraction, chunking, embedding and indexing.
// On failure no chunk of the document stays searchable.
func (uc *RAGUsecase) Ingest(ctx context.Context, req entity.IngestRequest) (*entity.IngestResult, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", entity.ErrInvalidFile, req.Filename)
	}

	docID := uuid.New().String()
	ctx = logger.AddFields(ctx, zap.String("document_id", docID), zap.String("filename", req.Filename))
	start := time.Now()

	checksum := sha256.Sum256(req.Content)
	uc.recordProcessing(ctx, entity.Document{
		ID:         docID,
		Filename:   req.Filename,
		Checksum:   hex.EncodeToString(checksum[:]),
		SizeBytes:  int64(len(req.Content)),
		Status:     entity.DocumentStatusProcessing,
		UploadedAt: start.UTC(),
	})

	logStage(ctx, entity.IngestStageExtracting)
	pages, err := uc.extractor.Extract(ctx, req.Content)
	if err != nil {
		return nil, uc.fail(ctx, docID, entity.IngestStageExtracting, err)
	}

	logStage(ctx, entity.IngestStageChunking, zap.Int("pages", len(pages)))
	chunks := uc.chunker.Chunk(docID, req.Filename, pages)
	if len(chunks) == 0 {
		return nil, uc.fail(ctx, docID, entity.IngestStageChunking,
			fmt.Errorf("%w: no text to index", entity.ErrExtraction))
	}

	logStage(ctx, entity.IngestStageEmbedding, zap.Int("chunks", len(chunks)))
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, uc.fail(ctx, docID, entity.IngestStageEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return nil, uc.fail(ctx, docID, entity.IngestStageEmbedding,
			fmt.Errorf("%w: got %d vectors for %d chunks", entity.ErrEmbeddingProvider, len(vectors), len(chunks)))
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}

	logStage(ctx, entity.IngestStageIndexing)
	written, err := uc.store.Write(ctx, docID, chunks)
	if err == nil && written != len(chunks) {
		err = fmt.Errorf("%w: wrote %d of %d chunks", entity.ErrStoreUnavailable, written, len(chunks))
	}
	if err != nil {
		uc.cleanup(ctx, docID)
		return nil, uc.fail(ctx, docID, entity.IngestStageIndexing, err)
	}

	if err := uc.documents.MarkIndexed(logger.Detach(ctx), docID, len(pages), len(chunks)); err != nil {
		ctxzap.Warn(ctx, "failed to record indexed document", zap.Error(err))
	}

	logStage(ctx, entity.IngestStageDone,
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)),
		zap.Duration("duration", time.Since(start)),
	)

	return &entity.IngestResult{
		DocumentID: docID,
		Filename:   req.Filename,
		ChunkCount: len(chunks),
		PageCount:  len(pages),
	}, nil
}

// IngestBatch ingests documents concurrently. Outcomes keep the input order.
func (uc *RAGUsecase) IngestBatch(ctx context.Context, reqs []entity.IngestRequest) []entity.IngestOutcome {
	outcomes := make([]entity.IngestOutcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(uc.opts.IngestConcurrency)

	for i, req := range reqs {
		g.Go(func() error {
			result, err := uc.Ingest(ctx, req)
			outcomes[i] = entity.IngestOutcome{Filename: req.Filename, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// Answer retrieves the top chunks for the question and generates a grounded answer
func (uc *RAGUsecase) Answer(ctx context.Context, q entity.Query) (*entity.Answer, error) {
	question := strings.TrimSpace(q.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question", entity.ErrMissingField)
	}

	k := q.TopK
	if k == 0 {
		k = uc.opts.DefaultTopK
	}
	if k < 1 || k > uc.opts.MaxTopK {
		return nil, fmt.Errorf("%w: top_k must be between 1 and %d, got %d", entity.ErrInvalidParameter, uc.opts.MaxTopK, k)
	}

	ctx = logger.AddFields(ctx, zap.Int("top_k", k))

	count, err := uc.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count indexed chunks: %w", err)
	}
	if count == 0 {
		ctxzap.Info(ctx, "store is empty, answering without context")
		return uc.generator.Generate(ctx, question, &entity.RetrievalResult{})
	}

	vector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	retrieval, err := uc.store.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	ctxzap.Info(ctx, "chunks retrieved", zap.Int("results", retrieval.Len()))

	answer, err := uc.generator.Generate(ctx, question, retrieval)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return answer, nil
}

// Health reports store state and provider reachability. Checks run in parallel.
func (uc *RAGUsecase) Health(ctx context.Context) *entity.HealthReport {
	report := &entity.HealthReport{
		Embedding: entity.ProviderReachable,
		Chat:      entity.ProviderReachable,
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	check := func(name string, fn func() error, set func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				ctxzap.Warn(ctx, "health check failed", zap.String("component", name), zap.Error(err))
				mu.Lock()
				set()
				mu.Unlock()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		status := uc.store.Health(ctx)
		mu.Lock()
		report.Store = status
		mu.Unlock()
	}()
	check("embedding", func() error { return uc.embedder.Ping(ctx) }, func() { report.Embedding = entity.ProviderUnreachable })
	check("chat", func() error { return uc.generator.Ping(ctx) }, func() { report.Chat = entity.ProviderUnreachable })
	wg.Wait()

	report.CheckedAt = time.Now().UTC()

	switch {
	case report.Store == entity.HealthUnavailable:
		report.Status = entity.HealthUnavailable
		report.Message = "Vector store is unavailable"
	case report.Store == entity.HealthDegraded:
		report.Status = entity.HealthDegraded
		report.Message = "Vector store is degraded but operational"
	case report.Embedding == entity.ProviderUnreachable || report.Chat == entity.ProviderUnreachable:
		report.Status = entity.HealthDegraded
		report.Message = "Model providers are not reachable"
	default:
		report.Status = entity.HealthAvailable
		report.Message = "All systems operational"
	}

	return report
}

func (uc *RAGUsecase) recordProcessing(ctx context.Context, doc entity.Document) {
	if err := uc.documents.CreateDocument(ctx, doc); err != nil {
		ctxzap.Warn(ctx, "failed to record document", zap.Error(err))
	}
}

// fail records the failed stage and returns err unchanged for the caller
func (uc *RAGUsecase) fail(ctx context.Context, docID string, stage entity.IngestStage, err error) error {
	ctxzap.Error(ctx, "ingestion failed",
		zap.String("stage", string(entity.IngestStageFailed)),
		zap.String("failed_stage", string(stage)),
		zap.String("code", entity.ErrorCode(err)),
		zap.Error(err),
	)

	if merr := uc.documents.MarkFailed(logger.Detach(ctx), docID, entity.ErrorCode(err), err.Error()); merr != nil {
		ctxzap.Warn(ctx, "failed to record failed document", zap.Error(merr))
	}

	return err
}

// cleanup deletes whatever part of the document reached the store
func (uc *RAGUsecase) cleanup(ctx context.Context, docID string) {
	cctx, cancel := context.WithTimeout(logger.Detach(ctx), cleanupTimeout)
	defer cancel()

	if err := uc.store.DeleteDocument(cctx, docID); err != nil {
		ctxzap.Error(ctx, "failed to clean up partially indexed document", zap.Error(err))
		return
	}
	ctxzap.Info(ctx, "partially indexed document cleaned up")
}

func logStage(ctx context.Context, stage entity.IngestStage, fields ...zap.Field) {
	ctxzap.Info(ctx, "ingestion stage", append([]zap.Field{zap.String("stage", string(stage))}, fields...)...)
}
