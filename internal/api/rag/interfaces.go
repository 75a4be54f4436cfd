package rag

import (
	"context"

	"github.com/futig/rag-backend/internal/entity"
)

type RAGUsecase interface {
	IngestBatch(ctx context.Context, reqs []entity.IngestRequest) []entity.IngestOutcome
	Answer(ctx context.Context, q entity.Query) (*entity.Answer, error)
	Health(ctx context.Context) *entity.HealthReport
}
