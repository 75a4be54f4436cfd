package rag

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers document, question and health routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/documents", h.UploadDocuments)
	r.Post("/question", h.AskQuestion)
	r.Get("/health", h.Health)
}
