package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{entity.ErrExtraction, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", entity.ErrTooManyFiles), http.StatusBadRequest},
		{entity.ErrInputTooLarge, http.StatusUnprocessableEntity},
		{entity.ErrEmbeddingProvider, http.StatusServiceUnavailable},
		{entity.Permanent(entity.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{entity.ErrDimensionMismatch, http.StatusInternalServerError},
		{entity.ErrConfig, http.StatusInternalServerError},
		{fmt.Errorf("unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestFromError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, fmt.Errorf("%w: index has 1536 dims", entity.ErrDimensionMismatch))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body entity.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, entity.CodeDimensionMismatch, body.Code)
	assert.Equal(t, "internal server error", body.Message)

	rec = httptest.NewRecorder()
	FromError(rec, fmt.Errorf("%w: top_k", entity.ErrInvalidParameter))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body.Message, "top_k")
}
