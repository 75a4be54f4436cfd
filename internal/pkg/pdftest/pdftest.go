// Package pdftest renders small PDF documents for tests of the ingestion path.
package pdftest

import (
	"bytes"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// Build renders one A4 page per entry. An empty entry produces a page without text.
func Build(pages ...string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Uncompressed content streams keep the text operators readable by any parser
	pdf.SetCompression(false)
	pdf.SetFont("Helvetica", "", 12)

	for _, text := range pages {
		pdf.AddPage()
		if text == "" {
			continue
		}
		_, lineHeight := pdf.GetFontSize()
		pdf.MultiCell(0, lineHeight*1.5, text, "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustBuild is Build for tests
func MustBuild(t testing.TB, pages ...string) []byte {
	t.Helper()
	data, err := Build(pages...)
	if err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	return data
}
