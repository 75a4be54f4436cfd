package validator

import (
	"mime/multipart"
	"strings"
	"testing"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValidator() *Validator {
	return NewValidator(config.FileUploadConfig{
		MaxFileSize:  100,
		MaxTotalSize: 150,
		MaxFileCount: 3,
	})
}

func files(sizes ...int64) []*multipart.FileHeader {
	out := make([]*multipart.FileHeader, len(sizes))
	for i, s := range sizes {
		out[i] = &multipart.FileHeader{Filename: "doc.pdf", Size: s}
	}
	return out
}

func TestValidateUpload(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name    string
		files   []*multipart.FileHeader
		wantErr error
	}{
		{"ok", files(10, 20), nil},
		{"none", nil, entity.ErrMissingField},
		{"too many", files(1, 1, 1, 1), entity.ErrTooManyFiles},
		{"file too large", files(101), entity.ErrFileTooLarge},
		{"total too large", files(80, 80), entity.ErrTotalSizeTooLarge},
		{"empty file", files(0), entity.ErrInvalidFile},
		{"wrong extension", []*multipart.FileHeader{{Filename: "notes.docx", Size: 5}}, entity.ErrInvalidExtension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpload(tt.files)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, entity.CodeInvalidRequest, entity.ErrorCode(err))
		})
	}
}

func TestValidatePDFContent(t *testing.T) {
	assert.NoError(t, ValidatePDFContent("a.pdf", []byte("%PDF-1.7\n...")))
	assert.ErrorIs(t, ValidatePDFContent("a.pdf", []byte("PK\x03\x04")), entity.ErrInvalidFile)
}

func TestValidateQuestion(t *testing.T) {
	v := testValidator()
	zero, five := 0, 5

	assert.NoError(t, v.ValidateQuestion(&entity.QuestionRequest{Question: "What is covered?", TopK: &five}))
	assert.NoError(t, v.ValidateQuestion(&entity.QuestionRequest{Question: "What is covered?"}))
	assert.ErrorIs(t, v.ValidateQuestion(&entity.QuestionRequest{Question: "  "}), entity.ErrMissingField)
	assert.ErrorIs(t, v.ValidateQuestion(&entity.QuestionRequest{Question: "q", TopK: &zero}), entity.ErrInvalidParameter)
	assert.ErrorIs(t, v.ValidateQuestion(&entity.QuestionRequest{Question: strings.Repeat("q", 4001)}), entity.ErrInvalidParameter)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", SanitizeFilename("../../etc/report.pdf"))
	assert.Equal(t, "report.pdf", SanitizeFilename(`C:\Users\me\report.pdf`))
	assert.Equal(t, "a (1).pdf", SanitizeFilename("a [1].pdf"))
	assert.Equal(t, "document.pdf", SanitizeFilename(""))
}
