package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/google/uuid"
)

// chunkNamespace scopes chunk ids so they never collide with random document ids
var chunkNamespace = uuid.MustParse("6f1d3c2e-8b7a-4e59-9c0d-2a4b6e8f1a3c")

// Chunker splits page text into overlapping windows measured in characters (runes)
type Chunker struct {
	maxChars int
	overlap  int
}

// New validates the window parameters. overlap must be below maxChars.
func New(maxChars, overlap int) (*Chunker, error) {
	if maxChars < 1 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", entity.ErrConfig, maxChars)
	}
	if overlap < 0 || overlap >= maxChars {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", entity.ErrConfig, maxChars, overlap)
	}
	return &Chunker{maxChars: maxChars, overlap: overlap}, nil
}

// Chunk splits the joined page text of one document. Pages are joined with a single
// newline that counts toward the preceding page. Empty text yields no chunks.
func (c *Chunker) Chunk(documentID, filename string, pages []entity.PageText) []entity.Chunk {
	text, pageOf := joinPages(pages)
	n := len(text)
	if n == 0 {
		return nil
	}

	step := c.maxChars - c.overlap
	chunks := make([]entity.Chunk, 0, n/step+1)

	for start := 0; ; start += step {
		end := min(start+c.maxChars, n)
		index := len(chunks)

		chunks = append(chunks, entity.Chunk{
			ID:            ChunkID(documentID, index),
			DocumentID:    documentID,
			Filename:      filename,
			SequenceIndex: index,
			Pages:         pagesInRange(pageOf, start, end),
			Text:          string(text[start:end]),
			StartOffset:   start,
			EndOffset:     end,
		})

		if end == n {
			break
		}
	}

	return chunks
}

// ChunkID is stable for a (document, index) pair so re-writing a chunk replaces it
func ChunkID(documentID string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(documentID+":"+strconv.Itoa(index))).String()
}

// joinPages concatenates page text and records the page number of every rune
func joinPages(pages []entity.PageText) ([]rune, []int) {
	size := len(pages)
	for _, p := range pages {
		size += len(p.Text)
	}

	text := make([]rune, 0, size)
	pageOf := make([]int, 0, size)

	for i, p := range pages {
		for _, r := range p.Text {
			text = append(text, r)
			pageOf = append(pageOf, p.Page)
		}
		if i < len(pages)-1 {
			text = append(text, '\n')
			pageOf = append(pageOf, p.Page)
		}
	}

	// A document of separators only carries no text
	if strings.TrimSpace(string(text)) == "" {
		return nil, nil
	}

	return text, pageOf
}

// pagesInRange lists the distinct pages covered by runes [start, end) in ascending order
func pagesInRange(pageOf []int, start, end int) []int {
	var pages []int
	for i := start; i < end; i++ {
		if len(pages) == 0 || pages[len(pages)-1] != pageOf[i] {
			pages = append(pages, pageOf[i])
		}
	}
	return pages
}
