package chunker

import (
	"strings"
	"testing"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lengths(chunks []entity.Chunk) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = len([]rune(c.Text))
	}
	return out
}

// reconstruct drops the overlap prefix of every chunk after the first
func reconstruct(chunks []entity.Chunk, overlap int) string {
	var sb strings.Builder
	for i, c := range chunks {
		r := []rune(c.Text)
		if i > 0 {
			r = r[overlap:]
		}
		sb.WriteString(string(r))
	}
	return sb.String()
}

func TestNew_InvalidWindow(t *testing.T) {
	tests := []struct {
		name     string
		maxChars int
		overlap  int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap above size", 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.maxChars, tt.overlap)
			require.ErrorIs(t, err, entity.ErrConfig)
			assert.Nil(t, c)
		})
	}
}

func TestChunk_ThreePageScenario(t *testing.T) {
	c, err := New(800, 100)
	require.NoError(t, err)

	// Three pages of 566 runes plus two joining newlines give 1700 runes
	pages := []entity.PageText{
		{Page: 1, Text: strings.Repeat("a", 566)},
		{Page: 2, Text: strings.Repeat("b", 566)},
		{Page: 3, Text: strings.Repeat("c", 566)},
	}

	chunks := c.Chunk("doc-1", "report.pdf", pages)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{800, 800, 300}, lengths(chunks))

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		cur := []rune(chunks[i].Text)
		assert.Equal(t, string(prev[len(prev)-100:]), string(cur[:100]), "chunk %d overlap", i)
		assert.Equal(t, chunks[i-1].EndOffset-100, chunks[i].StartOffset)
	}

	assert.Equal(t, []int{1, 2}, chunks[0].Pages)
	assert.Equal(t, []int{2, 3}, chunks[1].Pages)
	assert.Equal(t, []int{3}, chunks[2].Pages)
}

func TestChunk_1800Runes(t *testing.T) {
	c, err := New(800, 100)
	require.NoError(t, err)

	chunks := c.Chunk("doc", "f.pdf", []entity.PageText{{Page: 1, Text: strings.Repeat("x", 1800)}})
	assert.Equal(t, []int{800, 800, 400}, lengths(chunks))
}

func TestChunk_RoundTrip(t *testing.T) {
	pages := []entity.PageText{
		{Page: 1, Text: "Привет, мир! Это первая страница документа."},
		{Page: 2, Text: ""},
		{Page: 3, Text: strings.Repeat("Lorem ipsum dolor sit amet. ", 40)},
	}
	joined := pages[0].Text + "\n" + pages[1].Text + "\n" + pages[2].Text

	for _, cfg := range []struct{ size, overlap int }{{50, 0}, {50, 10}, {64, 63}, {5000, 100}, {1, 0}} {
		c, err := New(cfg.size, cfg.overlap)
		require.NoError(t, err)

		chunks := c.Chunk("doc", "f.pdf", pages)
		require.NotEmpty(t, chunks)
		assert.Equal(t, joined, reconstruct(chunks, cfg.overlap), "size=%d overlap=%d", cfg.size, cfg.overlap)

		for i, ch := range chunks {
			assert.LessOrEqual(t, len([]rune(ch.Text)), cfg.size)
			assert.Equal(t, i, ch.SequenceIndex)
			assert.Equal(t, "doc", ch.DocumentID)
			assert.Equal(t, ch.EndOffset-ch.StartOffset, len([]rune(ch.Text)))
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c, err := New(120, 20)
	require.NoError(t, err)

	pages := []entity.PageText{{Page: 1, Text: strings.Repeat("determinism ", 50)}}
	first := c.Chunk("doc-7", "a.pdf", pages)
	second := c.Chunk("doc-7", "a.pdf", pages)

	assert.Equal(t, first, second)
	assert.Equal(t, ChunkID("doc-7", 3), first[3].ID)
	assert.NotEqual(t, ChunkID("doc-8", 3), first[3].ID)
}

func TestChunk_EmptyText(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)

	assert.Empty(t, c.Chunk("doc", "f.pdf", nil))
	assert.Empty(t, c.Chunk("doc", "f.pdf", []entity.PageText{{Page: 1}, {Page: 2}}))
}
