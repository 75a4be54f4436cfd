package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/futig/rag-backend/internal/entity"
)

// VectorStore persists chunk vectors and answers k-nearest-neighbour queries.
// Write is all-or-nothing per document from the reader's point of view.
type VectorStore interface {
	Write(ctx context.Context, documentID string, chunks []entity.Chunk) (int, error)
	Search(ctx context.Context, vector []float32, k int) (*entity.RetrievalResult, error)
	DeleteDocument(ctx context.Context, documentID string) error
	Count(ctx context.Context) (int64, error)
	Health(ctx context.Context) entity.HealthStatus
}

// sortScored orders by score descending, then sequence index, then document id
func sortScored(chunks []entity.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		a, b := chunks[i], chunks[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.SequenceIndex != b.Chunk.SequenceIndex {
			return a.Chunk.SequenceIndex < b.Chunk.SequenceIndex
		}
		return a.Chunk.DocumentID < b.Chunk.DocumentID
	})
}

func validateWrite(documentID string, chunks []entity.Chunk, dimensions int) error {
	for i := range chunks {
		c := &chunks[i]
		if c.DocumentID != documentID {
			return fmt.Errorf("%w: chunk %s belongs to document %s, not %s",
				entity.ErrInvalidParameter, c.ID, c.DocumentID, documentID)
		}
		if len(c.Vector) != dimensions {
			return fmt.Errorf("%w: chunk %d has %d dimensions, store expects %d",
				entity.ErrDimensionMismatch, c.SequenceIndex, len(c.Vector), dimensions)
		}
	}
	return nil
}

func validateSearch(vector []float32, k, dimensions int) error {
	if k < 1 {
		return fmt.Errorf("%w: k must be positive, got %d", entity.ErrInvalidParameter, k)
	}
	if len(vector) != dimensions {
		return fmt.Errorf("%w: query has %d dimensions, store expects %d",
			entity.ErrDimensionMismatch, len(vector), dimensions)
	}
	return nil
}
