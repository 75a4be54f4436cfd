package extractor

import (
	"context"
	"testing"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_PagesInOrder(t *testing.T) {
	data := pdftest.MustBuild(t, "Alpha page content", "Bravo page content", "Charlie page content")

	pages, err := NewPDFExtractor(0).Extract(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	for i, want := range []string{"Alpha", "Bravo", "Charlie"} {
		assert.Equal(t, i+1, pages[i].Page)
		assert.Contains(t, pages[i].Text, want)
	}
}

func TestExtract_KeepsEmptyPages(t *testing.T) {
	data := pdftest.MustBuild(t, "Intro", "", "Appendix")

	pages, err := NewPDFExtractor(0).Extract(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Empty(t, pages[1].Text)
	assert.Equal(t, 3, pages[2].Page)
	assert.Contains(t, pages[2].Text, "Appendix")
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		maxPages int
		wantErr  error
	}{
		{"empty input", nil, 0, entity.ErrExtraction},
		{"not a pdf", []byte("definitely not a pdf document"), 0, entity.ErrExtraction},
		{"truncated pdf", pdftest.MustBuild(t, "Hello")[:64], 0, entity.ErrExtraction},
		{"all pages empty", pdftest.MustBuild(t, "", ""), 0, entity.ErrExtraction},
		{"too many pages", pdftest.MustBuild(t, "a", "b", "c"), 2, entity.ErrTooManyPages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := NewPDFExtractor(tt.maxPages).Extract(context.Background(), tt.data)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, pages)
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"hyphenated break", "inter-\nnational", "international"},
		{"blank lines", "one\n\n\n  \ntwo", "one\ntwo"},
		{"spaces and tabs", "a  \t b", "a b"},
		{"control chars", "a\x00b\x07c", "abc"},
		{"trim", "  \n padded \n ", "padded"},
		{"crlf", "line1\r\nline2", "line1\nline2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeText(tt.in))
		})
	}
}
