package entity

// NoContextAnswer is returned when nothing relevant is indexed. The chat provider is not called.
const NoContextAnswer = "I apologize, but I don't have enough context to answer your question accurately. " +
	"Please upload PDF documents related to your question first."

// Query is a single question. TopK of zero means the configured default.
type Query struct {
	Question string
	TopK     int
}

// ScoredChunk is a retrieved chunk together with its cosine similarity to the question
type ScoredChunk struct {
	Chunk IndexedChunk
	Score float64
}

// RetrievalResult holds at most k chunks ordered by descending score,
// ties broken by ascending sequence index.
type RetrievalResult struct {
	Chunks []ScoredChunk
}

// Len returns the number of retrieved chunks
func (r *RetrievalResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Chunks)
}

// Answer is a generated answer plus the retrieval it was grounded on
type Answer struct {
	Text      string
	Retrieval *RetrievalResult
	Grounded  bool
}
