// Command rag-ingest indexes local PDF files through the same pipeline as the HTTP service.
//
//	rag-ingest [-env local] [-dry-run] [-timeout 30m] file.pdf...
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/futig/rag-backend/internal/builder"
	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	pkgLogger "github.com/futig/rag-backend/internal/pkg/logger"
	"github.com/futig/rag-backend/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

func main() {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	dryRun := flag.Bool("dry-run", false, "Index into an in-memory store instead of Elasticsearch")
	timeout := flag.Duration("timeout", 30*time.Minute, "Upper bound for the whole run")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] file.pdf...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed, err := run(*envFlag, *dryRun, *timeout, flag.Args(), os.Stdout)
	if err != nil {
		log.Fatal("Ingestion error: ", err)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// run ingests paths and prints one line per file. It returns the number of files that failed.
func run(environment string, dryRun bool, timeout time.Duration, paths []string, out io.Writer) (int, error) {
	cfg, err := config.Load(environment)
	if err != nil {
		return 0, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := pkgLogger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return 0, fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = ctxzap.ToContext(ctx, logger.With(zap.String("action", "BatchIngest")))

	pipeline, err := builder.BuildPipeline(ctx, cfg, logger, builder.PipelineOptions{InMemoryStore: dryRun})
	if err != nil {
		return 0, fmt.Errorf("build pipeline: %w", err)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.Warn("Failed to release pipeline resources", zap.Error(err))
		}
	}()

	v := validator.NewValidator(cfg.FileUploadCfg)

	var (
		reqs    []entity.IngestRequest
		sources []string
		failed  int
	)
	for _, path := range paths {
		req, err := readPDF(v, path)
		if err != nil {
			fmt.Fprintf(out, "FAIL %s code=%s: %v\n", path, entity.ErrorCode(err), err)
			failed++
			continue
		}
		reqs = append(reqs, req)
		sources = append(sources, path)
	}

	for i, o := range pipeline.Usecase.IngestBatch(ctx, reqs) {
		if o.Err != nil {
			fmt.Fprintf(out, "FAIL %s code=%s: %v\n", sources[i], entity.ErrorCode(o.Err), o.Err)
			failed++
			continue
		}
		fmt.Fprintf(out, "OK   %s document_id=%s pages=%d chunks=%d\n",
			sources[i], o.Result.DocumentID, o.Result.PageCount, o.Result.ChunkCount)
	}

	logger.Info("Batch ingestion finished",
		zap.Int("files", len(paths)),
		zap.Int("failed", failed),
		zap.Bool("dry_run", dryRun),
	)
	return failed, nil
}

func readPDF(v *validator.Validator, path string) (entity.IngestRequest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return entity.IngestRequest{}, fmt.Errorf("%w: %v", entity.ErrInvalidFile, err)
	}

	filename := validator.SanitizeFilename(path)
	if err := v.ValidateFile(filename, info.Size()); err != nil {
		return entity.IngestRequest{}, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return entity.IngestRequest{}, fmt.Errorf("%w: %v", entity.ErrInvalidFile, err)
	}
	if err := validator.ValidatePDFContent(filename, content); err != nil {
		return entity.IngestRequest{}, err
	}

	return entity.IngestRequest{Filename: filename, Content: content}, nil
}
