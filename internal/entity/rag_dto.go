package entity

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type QuestionRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k,omitempty"`
}

type SourceResponse struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Page       int     `json:"page"`
	Pages      []int   `json:"pages"`
	ChunkText  string  `json:"chunk_text"`
	Score      float64 `json:"score"`
}

type QuestionResponse struct {
	AnswerText string           `json:"answer_text"`
	Sources    []SourceResponse `json:"sources"`
}

type DocumentSummary struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	PageCount  int    `json:"page_count"`
}

type FailedFile struct {
	Filename string `json:"filename"`
	Code     string `json:"code"`
	Error    string `json:"error"`
}

type UploadDocumentsResponse struct {
	Message     string            `json:"message"`
	Documents   []DocumentSummary `json:"documents"`
	TotalChunks int               `json:"total_chunks"`
	FailedFiles []FailedFile      `json:"failed_files"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Store     string    `json:"store"`
	Embedding string    `json:"embedding"`
	Chat      string    `json:"chat"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
