package entity

import "time"

type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "PROCESSING" // Ingestion in progress, not searchable
	DocumentStatusIndexed    DocumentStatus = "INDEXED"    // All chunks written and searchable
	DocumentStatusFailed     DocumentStatus = "FAILED"     // Ingestion aborted, no chunk left behind
)

// IngestStage is a state of the per-request ingestion state machine
type IngestStage string

const (
	IngestStageExtracting IngestStage = "EXTRACTING"
	IngestStageChunking   IngestStage = "CHUNKING"
	IngestStageEmbedding  IngestStage = "EMBEDDING"
	IngestStageIndexing   IngestStage = "INDEXING"
	IngestStageDone       IngestStage = "DONE"
	IngestStageFailed     IngestStage = "FAILED"
)

// Document is an uploaded PDF. It is immutable once indexed.
type Document struct {
	ID           string
	Filename     string
	Checksum     string
	SizeBytes    int64
	PageCount    int
	ChunkCount   int
	Status       DocumentStatus
	ErrorCode    string
	ErrorMessage string
	UploadedAt   time.Time
	UpdatedAt    time.Time
}

// PageText is the normalized text of a single PDF page. Page numbers start at 1.
type PageText struct {
	Page int
	Text string
}

// Chunk is a bounded slice of a document's extracted text.
// StartOffset and EndOffset are rune offsets into the joined document text, end exclusive.
type Chunk struct {
	ID            string
	DocumentID    string
	Filename      string
	SequenceIndex int
	Pages         []int
	Text          string
	StartOffset   int
	EndOffset     int
	Vector        []float32
}

// FirstPage returns the page the chunk starts on
func (c *Chunk) FirstPage() int {
	if len(c.Pages) == 0 {
		return 0
	}
	return c.Pages[0]
}

// IndexedChunk is a chunk as persisted by a vector store
type IndexedChunk struct {
	Chunk
	StoreID   string
	IndexedAt time.Time
}

// IngestRequest carries one uploaded file into the ingestion pipeline
type IngestRequest struct {
	Filename string
	Content  []byte
}

// IngestResult is returned after a document became searchable
type IngestResult struct {
	DocumentID string
	Filename   string
	ChunkCount int
	PageCount  int
}

// IngestOutcome is the per-file result of a batch upload. Exactly one of Result and Err is set.
type IngestOutcome struct {
	Filename string
	Result   *IngestResult
	Err      error
}
