package rag

import (
	"context"

	"github.com/futig/rag-backend/internal/entity"
)

// Extractor turns raw document bytes into page texts
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]entity.PageText, error)
}

// Chunker splits page texts of one document into ordered chunks
type Chunker interface {
	Chunk(documentID, filename string, pages []entity.PageText) []entity.Chunk
}

// Embedder produces position-aligned vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Ping(ctx context.Context) error
}

// AnswerGenerator writes an answer grounded on retrieved chunks
type AnswerGenerator interface {
	Generate(ctx context.Context, question string, retrieval *entity.RetrievalResult) (*entity.Answer, error)
	Ping(ctx context.Context) error
}
