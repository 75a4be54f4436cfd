package repository

import (
	"context"
	"sync"
	"time"

	"github.com/futig/rag-backend/internal/entity"
)

var _ DocumentRepository = &DocumentMemory{}

// DocumentMemory keeps the registry in process when no database is configured
type DocumentMemory struct {
	mu   sync.RWMutex
	docs map[string]entity.Document
}

func NewDocumentMemory() *DocumentMemory {
	return &DocumentMemory{docs: make(map[string]entity.Document)}
}

func (r *DocumentMemory) CreateDocument(_ context.Context, doc entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc.UpdatedAt = doc.UploadedAt
	r.docs[doc.ID] = doc
	return nil
}

func (r *DocumentMemory) MarkIndexed(_ context.Context, id string, pageCount, chunkCount int) error {
	return r.update(id, func(d *entity.Document) {
		d.Status = entity.DocumentStatusIndexed
		d.PageCount = pageCount
		d.ChunkCount = chunkCount
		d.ErrorCode, d.ErrorMessage = "", ""
	})
}

func (r *DocumentMemory) MarkFailed(_ context.Context, id, code, message string) error {
	return r.update(id, func(d *entity.Document) {
		d.Status = entity.DocumentStatusFailed
		d.ErrorCode = code
		d.ErrorMessage = message
	})
}

func (r *DocumentMemory) update(id string, apply func(*entity.Document)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return entity.ErrDocumentNotFound
	}
	apply(&doc)
	doc.UpdatedAt = time.Now().UTC()
	r.docs[id] = doc
	return nil
}

func (r *DocumentMemory) GetDocument(_ context.Context, id string) (*entity.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, entity.ErrDocumentNotFound
	}
	return &doc, nil
}

func (r *DocumentMemory) Ping(context.Context) error {
	return nil
}
