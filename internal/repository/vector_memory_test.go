package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunk(docID string, seq int, vector ...float32) entity.Chunk {
	return entity.Chunk{
		ID:            fmt.Sprintf("%s-%d", docID, seq),
		DocumentID:    docID,
		Filename:      docID + ".pdf",
		SequenceIndex: seq,
		Pages:         []int{seq + 1},
		Text:          fmt.Sprintf("chunk %d of %s", seq, docID),
		Vector:        vector,
	}
}

func TestVectorMemory_SearchOrderAndBound(t *testing.T) {
	ctx := context.Background()
	store := NewVectorMemory(2)

	_, err := store.Write(ctx, "a", []entity.Chunk{
		testChunk("a", 0, 1, 0),
		testChunk("a", 1, 0, 1),
		testChunk("a", 2, 1, 1),
	})
	require.NoError(t, err)

	res, err := store.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, "a-0", res.Chunks[0].Chunk.ID)
	assert.InDelta(t, 1.0, res.Chunks[0].Score, 1e-9)
	assert.Equal(t, "a-2", res.Chunks[1].Chunk.ID)
	assert.GreaterOrEqual(t, res.Chunks[0].Score, res.Chunks[1].Score)

	res, err = store.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Len())
}

func TestVectorMemory_TieBreak(t *testing.T) {
	ctx := context.Background()
	store := NewVectorMemory(2)

	_, err := store.Write(ctx, "b", []entity.Chunk{testChunk("b", 3, 1, 0), testChunk("b", 1, 1, 0)})
	require.NoError(t, err)
	_, err = store.Write(ctx, "a", []entity.Chunk{testChunk("a", 3, 1, 0)})
	require.NoError(t, err)

	res, err := store.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)

	var ids []string
	for _, c := range res.Chunks {
		ids = append(ids, c.Chunk.ID)
	}
	assert.Equal(t, []string{"b-1", "a-3", "b-3"}, ids)
}

func TestVectorMemory_IdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewVectorMemory(2)

	first := testChunk("a", 0, 1, 0)
	_, err := store.Write(ctx, "a", []entity.Chunk{first})
	require.NoError(t, err)

	second := first
	second.Text = "updated"
	second.Vector = []float32{0, 1}
	_, err = store.Write(ctx, "a", []entity.Chunk{second})
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	res, err := store.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "updated", res.Chunks[0].Chunk.Text)
	assert.InDelta(t, 1.0, res.Chunks[0].Score, 1e-9)
}

func TestVectorMemory_Validation(t *testing.T) {
	ctx := context.Background()
	store := NewVectorMemory(2)

	_, err := store.Write(ctx, "a", []entity.Chunk{testChunk("a", 0, 1, 0), testChunk("a", 1, 1, 0, 0)})
	require.ErrorIs(t, err, entity.ErrDimensionMismatch)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "a rejected write must not expose any chunk")

	_, err = store.Write(ctx, "a", []entity.Chunk{testChunk("b", 0, 1, 0)})
	require.ErrorIs(t, err, entity.ErrInvalidParameter)

	_, err = store.Search(ctx, []float32{1, 0}, 0)
	require.ErrorIs(t, err, entity.ErrInvalidParameter)

	_, err = store.Search(ctx, []float32{1, 0, 0}, 1)
	require.ErrorIs(t, err, entity.ErrDimensionMismatch)

	res, err := store.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Zero(t, res.Len())
}

func TestVectorMemory_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	store := NewVectorMemory(2)

	_, err := store.Write(ctx, "a", []entity.Chunk{testChunk("a", 0, 1, 0), testChunk("a", 1, 0, 1)})
	require.NoError(t, err)
	_, err = store.Write(ctx, "b", []entity.Chunk{testChunk("b", 0, 1, 0)})
	require.NoError(t, err)

	require.NoError(t, store.DeleteDocument(ctx, "a"))

	res, err := store.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, "b", res.Chunks[0].Chunk.DocumentID)
}

func TestVectorMemory_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := NewVectorMemory(2)

	var wg sync.WaitGroup
	for d := 0; d < 8; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			docID := fmt.Sprintf("doc-%d", d)
			chunks := make([]entity.Chunk, 5)
			for i := range chunks {
				chunks[i] = testChunk(docID, i, 1, float32(i))
			}
			_, err := store.Write(ctx, docID, chunks)
			assert.NoError(t, err)
		}(d)
	}
	wg.Wait()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 40, count)
}
