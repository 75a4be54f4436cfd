package rag

import (
	"fmt"
	"net/http"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/response"
)

// toQuestionResponse converts Answer entity to QuestionResponse DTO
func toQuestionResponse(a *entity.Answer) *entity.QuestionResponse {
	resp := &entity.QuestionResponse{
		AnswerText: a.Text,
		Sources:    make([]entity.SourceResponse, 0, a.Retrieval.Len()),
	}
	if a.Retrieval == nil {
		return resp
	}

	for _, sc := range a.Retrieval.Chunks {
		pages := sc.Chunk.Pages
		if pages == nil {
			pages = []int{}
		}
		resp.Sources = append(resp.Sources, entity.SourceResponse{
			DocumentID: sc.Chunk.DocumentID,
			Filename:   sc.Chunk.Filename,
			Page:       sc.Chunk.FirstPage(),
			Pages:      pages,
			ChunkText:  sc.Chunk.Text,
			Score:      sc.Score,
		})
	}
	return resp
}

// toFailedFile converts a per-file error to its response DTO. Internal errors keep their text out of the response.
func toFailedFile(filename string, err error) entity.FailedFile {
	message := err.Error()
	if response.StatusFor(err) == http.StatusInternalServerError {
		message = "internal server error"
	}
	return entity.FailedFile{
		Filename: filename,
		Code:     entity.ErrorCode(err),
		Error:    message,
	}
}

// toUploadResponse merges rejected files and ingestion outcomes into one response
func toUploadResponse(rejected []entity.FailedFile, outcomes []entity.IngestOutcome) *entity.UploadDocumentsResponse {
	resp := &entity.UploadDocumentsResponse{
		Documents:   make([]entity.DocumentSummary, 0, len(outcomes)),
		FailedFiles: append(make([]entity.FailedFile, 0, len(rejected)+len(outcomes)), rejected...),
	}

	for _, o := range outcomes {
		if o.Err != nil {
			resp.FailedFiles = append(resp.FailedFiles, toFailedFile(o.Filename, o.Err))
			continue
		}
		resp.Documents = append(resp.Documents, entity.DocumentSummary{
			DocumentID: o.Result.DocumentID,
			Filename:   o.Result.Filename,
			ChunkCount: o.Result.ChunkCount,
			PageCount:  o.Result.PageCount,
		})
		resp.TotalChunks += o.Result.ChunkCount
	}

	total := len(resp.Documents) + len(resp.FailedFiles)
	resp.Message = fmt.Sprintf("Successfully processed %d of %d files", len(resp.Documents), total)
	return resp
}

// toHealthResponse converts HealthReport entity to HealthResponse DTO
func toHealthResponse(r *entity.HealthReport) *entity.HealthResponse {
	return &entity.HealthResponse{
		Status:    string(r.Status),
		Store:     string(r.Store),
		Embedding: string(r.Embedding),
		Chat:      string(r.Chat),
		Message:   r.Message,
		Timestamp: r.CheckedAt,
	}
}
