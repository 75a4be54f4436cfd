package entity

import (
	"context"
	"errors"
)

// Domain errors
var (
	// Pipeline errors
	ErrExtraction         = errors.New("document unreadable")
	ErrConfig             = errors.New("invalid configuration")
	ErrEmbeddingProvider  = errors.New("embedding provider failure")
	ErrGenerationProvider = errors.New("generation provider failure")
	ErrStoreUnavailable   = errors.New("vector store unavailable")
	ErrInputTooLarge      = errors.New("input exceeds provider limit")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")

	// Document errors
	ErrDocumentNotFound = errors.New("document not found")

	// File errors
	ErrInvalidFile       = errors.New("invalid file")
	ErrFileTooLarge      = errors.New("file too large")
	ErrTooManyFiles      = errors.New("too many files")
	ErrTooManyPages      = errors.New("too many pages")
	ErrInvalidExtension  = errors.New("invalid file extension")
	ErrTotalSizeTooLarge = errors.New("total file size too large")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Stable error codes exposed to API clients
const (
	CodeDocumentUnreadable    = "document_unreadable"
	CodeInvalidConfig         = "invalid_config"
	CodeEmbeddingUnavailable  = "embedding_unavailable"
	CodeGenerationUnavailable = "generation_unavailable"
	CodeStoreUnavailable      = "store_unavailable"
	CodeInputTooLarge         = "input_too_large"
	CodeDimensionMismatch     = "dimension_mismatch"
	CodeInvalidRequest        = "invalid_request"
	CodeNotFound              = "not_found"
	CodeTimeout               = "timeout"
	CodeInternal              = "internal"
)

// ErrorCode maps an error to its stable category code
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDimensionMismatch):
		return CodeDimensionMismatch
	case errors.Is(err, ErrInputTooLarge):
		return CodeInputTooLarge
	case errors.Is(err, ErrExtraction):
		return CodeDocumentUnreadable
	case errors.Is(err, ErrConfig):
		return CodeInvalidConfig
	case errors.Is(err, ErrEmbeddingProvider):
		return CodeEmbeddingUnavailable
	case errors.Is(err, ErrGenerationProvider):
		return CodeGenerationUnavailable
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	case errors.Is(err, ErrDocumentNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidFile), errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrTooManyFiles),
		errors.Is(err, ErrTooManyPages), errors.Is(err, ErrInvalidExtension), errors.Is(err, ErrTotalSizeTooLarge),
		errors.Is(err, ErrMissingField), errors.Is(err, ErrInvalidParameter):
		return CodeInvalidRequest
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	default:
		return CodeInternal
	}
}

// IsTransient reports whether err is a network-class failure worth retrying.
// Input, extraction and dimension errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInputTooLarge) || errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrExtraction) || errors.Is(err, ErrConfig) {
		return false
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}
	return errors.Is(err, ErrEmbeddingProvider) ||
		errors.Is(err, ErrGenerationProvider) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

// PermanentError marks a provider or store failure that retrying cannot fix,
// such as a rejected credential. It keeps the category of the wrapped error.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so IsTransient reports false for it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
