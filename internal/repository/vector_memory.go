package repository

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/futig/rag-backend/internal/entity"
)

var _ VectorStore = &VectorMemory{}

// VectorMemory is a brute-force cosine store used offline and in tests
type VectorMemory struct {
	mu         sync.RWMutex
	dimensions int
	chunks     map[string]*entity.IndexedChunk
}

func NewVectorMemory(dimensions int) *VectorMemory {
	return &VectorMemory{
		dimensions: dimensions,
		chunks:     make(map[string]*entity.IndexedChunk),
	}
}

// Write upserts by chunk id. Chunks become visible together under one lock.
func (m *VectorMemory) Write(ctx context.Context, documentID string, chunks []entity.Chunk) (int, error) {
	if err := validateWrite(documentID, chunks, m.dimensions); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range chunks {
		stored := c
		stored.Pages = append([]int(nil), c.Pages...)
		stored.Vector = append([]float32(nil), c.Vector...)
		m.chunks[c.ID] = &entity.IndexedChunk{
			Chunk:     stored,
			StoreID:   c.ID,
			IndexedAt: now,
		}
	}

	return len(chunks), nil
}

func (m *VectorMemory) Search(ctx context.Context, vector []float32, k int) (*entity.RetrievalResult, error) {
	if err := validateSearch(vector, k, m.dimensions); err != nil {
		return nil, err
	}

	m.mu.RLock()
	scored := make([]entity.ScoredChunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		scored = append(scored, entity.ScoredChunk{
			Chunk: *c,
			Score: cosine(vector, c.Vector),
		})
	}
	m.mu.RUnlock()

	sortScored(scored)
	if len(scored) > k {
		scored = scored[:k]
	}

	return &entity.RetrievalResult{Chunks: scored}, nil
}

func (m *VectorMemory) DeleteDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, c := range m.chunks {
		if c.DocumentID == documentID {
			delete(m.chunks, id)
		}
	}
	return nil
}

func (m *VectorMemory) Count(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.chunks)), nil
}

func (m *VectorMemory) Health(context.Context) entity.HealthStatus {
	return entity.HealthAvailable
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
