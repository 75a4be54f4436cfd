package extractor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// PDFExtractor turns PDF bytes into per-page plain text
type PDFExtractor struct {
	maxPages int
}

// NewPDFExtractor creates an extractor. maxPages <= 0 disables the page bound.
func NewPDFExtractor(maxPages int) *PDFExtractor {
	return &PDFExtractor{maxPages: maxPages}
}

// Extract returns one entry per page, 1-based and in order.
// Pages without text are kept as empty entries, but a document with no text at all is rejected.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (pages []entity.PageText, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", entity.ErrExtraction)
	}

	// The parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: malformed pdf: %v", entity.ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", entity.ErrExtraction, err)
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("%w: pdf has no pages", entity.ErrExtraction)
	}
	if e.maxPages > 0 && total > e.maxPages {
		return nil, fmt.Errorf("%w: %d pages, limit is %d", entity.ErrTooManyPages, total, e.maxPages)
	}

	pages = make([]entity.PageText, 0, total)
	withText := 0
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		text := ""
		if !page.V.IsNull() {
			raw, err := page.GetPlainText(nil)
			if err != nil {
				ctxzap.Warn(ctx, "failed to read page text, keeping page empty",
					zap.Int("page", i),
					zap.Error(err),
				)
			} else {
				text = normalizeText(raw)
			}
		}

		if text != "" {
			withText++
		}
		pages = append(pages, entity.PageText{Page: i, Text: text})
	}

	if withText == 0 {
		return nil, fmt.Errorf("%w: no extractable text in %d pages", entity.ErrExtraction, total)
	}

	ctxzap.Debug(ctx, "pdf extracted",
		zap.Int("pages", total),
		zap.Int("pages_with_text", withText),
	)

	return pages, nil
}
