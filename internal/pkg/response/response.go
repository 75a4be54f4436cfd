package response

import (
	"encoding/json"
	"net/http"

	"github.com/futig/rag-backend/internal/entity"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		// Headers are already sent, an encode failure can only be dropped
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes an error body with a stable machine code
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, entity.ErrorResponse{Error: http.StatusText(status), Code: code, Message: message})
}

// Success writes a success response
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created response
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// StatusFor maps an error category onto an HTTP status
func StatusFor(err error) int {
	switch entity.ErrorCode(err) {
	case entity.CodeInvalidRequest, entity.CodeDocumentUnreadable:
		return http.StatusBadRequest
	case entity.CodeInputTooLarge:
		return http.StatusUnprocessableEntity
	case entity.CodeNotFound:
		return http.StatusNotFound
	case entity.CodeEmbeddingUnavailable, entity.CodeGenerationUnavailable, entity.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case entity.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes err with the status and code of its category.
// Internal failures do not leak their message.
func FromError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	Error(w, status, entity.ErrorCode(err), message)
}
