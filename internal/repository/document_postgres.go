package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ DocumentRepository = &DocumentPostgres{}

// DocumentPostgres implements DocumentRepository using PostgreSQL
type DocumentPostgres struct {
	db *pgxpool.Pool
}

func NewDocumentPostgres(db *pgxpool.Pool) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

const insertDocument = `
INSERT INTO documents (id, filename, checksum, size_bytes, status, uploaded_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`

func (r *DocumentPostgres) CreateDocument(ctx context.Context, doc entity.Document) error {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}

	_, err = r.db.Exec(ctx, insertDocument, id, doc.Filename, doc.Checksum, doc.SizeBytes, string(doc.Status), doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

const markIndexed = `
UPDATE documents
SET status = 'INDEXED', page_count = $2, chunk_count = $3, error_code = '', error_message = '', updated_at = now()
WHERE id = $1`

func (r *DocumentPostgres) MarkIndexed(ctx context.Context, id string, pageCount, chunkCount int) error {
	return r.update(ctx, "mark document indexed", markIndexed, id, pageCount, chunkCount)
}

const markFailed = `
UPDATE documents
SET status = 'FAILED', error_code = $2, error_message = $3, updated_at = now()
WHERE id = $1`

func (r *DocumentPostgres) MarkFailed(ctx context.Context, id, code, message string) error {
	return r.update(ctx, "mark document failed", markFailed, id, code, message)
}

func (r *DocumentPostgres) update(ctx context.Context, op, query, id string, args ...any) error {
	docID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, append([]any{docID}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrDocumentNotFound)
	}

	return nil
}

const selectDocument = `
SELECT id::text, filename, checksum, size_bytes, page_count, chunk_count, status, error_code, error_message, uploaded_at, updated_at
FROM documents
WHERE id = $1`

func (r *DocumentPostgres) GetDocument(ctx context.Context, id string) (*entity.Document, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse document ID: %w", err)
	}

	var (
		doc    entity.Document
		status string
	)
	err = r.db.QueryRow(ctx, selectDocument, docID).Scan(
		&doc.ID, &doc.Filename, &doc.Checksum, &doc.SizeBytes, &doc.PageCount, &doc.ChunkCount,
		&status, &doc.ErrorCode, &doc.ErrorMessage, &doc.UploadedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	doc.Status = entity.DocumentStatus(status)

	return &doc, nil
}

func (r *DocumentPostgres) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
