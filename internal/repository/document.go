package repository

import (
	"context"

	"github.com/futig/rag-backend/internal/entity"
)

// DocumentRepository tracks the ingestion status of uploaded documents
type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc entity.Document) error
	MarkIndexed(ctx context.Context, id string, pageCount, chunkCount int) error
	MarkFailed(ctx context.Context, id, code, message string) error
	GetDocument(ctx context.Context, id string) (*entity.Document, error)
	Ping(ctx context.Context) error
}
