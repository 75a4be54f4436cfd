package rag

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/logger"
	"github.com/futig/rag-backend/internal/pkg/response"
	"github.com/futig/rag-backend/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const maxQuestionBodySize = 64 << 10

type Handler struct {
	usecase   RAGUsecase
	cfg       config.FileUploadConfig
	validator *validator.Validator
}

func NewHandler(usecase RAGUsecase, cfg config.FileUploadConfig, validator *validator.Validator) *Handler {
	return &Handler{
		usecase:   usecase,
		cfg:       cfg,
		validator: validator,
	}
}

// UploadDocuments handles POST /documents
func (h *Handler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "UploadDocuments")

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxTotalSize+h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		ctxzap.Warn(ctx, "failed to parse multipart form", zap.Error(err))
		response.Error(w, http.StatusBadRequest, entity.CodeInvalidRequest, "invalid form data or size too large")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			ctxzap.Warn(ctx, "failed to remove multipart temp files", zap.Error(err))
		}
	}()

	files := r.MultipartForm.File["files"]
	if err := h.validator.ValidateUpload(files); err != nil {
		ctxzap.Warn(ctx, "upload rejected", zap.Error(err))
		response.FromError(w, err)
		return
	}

	ctxzap.Info(ctx, "uploading documents", zap.Int("file_count", len(files)))

	var (
		reqs     = make([]entity.IngestRequest, 0, len(files))
		rejected []entity.FailedFile
	)
	for _, fh := range files {
		filename := validator.SanitizeFilename(fh.Filename)
		content, err := readFile(fh, h.cfg.MaxFileSize)
		if err == nil {
			err = validator.ValidatePDFContent(filename, content)
		}
		if err != nil {
			ctxzap.Warn(ctx, "file rejected", zap.String("filename", filename), zap.Error(err))
			rejected = append(rejected, toFailedFile(filename, err))
			continue
		}
		reqs = append(reqs, entity.IngestRequest{Filename: filename, Content: content})
	}

	outcomes := h.usecase.IngestBatch(ctx, reqs)
	resp := toUploadResponse(rejected, outcomes)

	ctxzap.Info(ctx, "documents processed",
		zap.Int("indexed", len(resp.Documents)),
		zap.Int("failed", len(resp.FailedFiles)),
		zap.Int("total_chunks", resp.TotalChunks),
	)

	if len(resp.Documents) == 0 {
		response.JSON(w, failedUploadStatus(outcomes), resp)
		return
	}
	response.Success(w, resp)
}

// AskQuestion handles POST /question
func (h *Handler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "AskQuestion")

	var req entity.QuestionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBodySize)).Decode(&req); err != nil {
		ctxzap.Warn(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, entity.CodeInvalidRequest, "invalid request body")
		return
	}

	if err := h.validator.ValidateQuestion(&req); err != nil {
		ctxzap.Warn(ctx, "question rejected", zap.Error(err))
		response.FromError(w, err)
		return
	}

	q := entity.Query{Question: req.Question}
	if req.TopK != nil {
		q.TopK = *req.TopK
	}

	answer, err := h.usecase.Answer(ctx, q)
	if err != nil {
		ctxzap.Error(ctx, "failed to answer question", zap.String("code", entity.ErrorCode(err)), zap.Error(err))
		response.FromError(w, err)
		return
	}

	ctxzap.Info(ctx, "question answered",
		zap.Int("sources", answer.Retrieval.Len()),
		zap.Bool("grounded", answer.Grounded),
	)
	response.Success(w, toQuestionResponse(answer))
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.usecase.Health(r.Context())

	status := http.StatusOK
	if report.Status == entity.HealthUnavailable {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, toHealthResponse(report))
}

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", entity.ErrInvalidFile, fh.Filename, err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", entity.ErrInvalidFile, fh.Filename, err)
	}
	if int64(len(content)) > maxSize {
		return nil, fmt.Errorf("%w: file %q exceeds %d bytes", entity.ErrFileTooLarge, fh.Filename, maxSize)
	}
	return content, nil
}

// failedUploadStatus is 503 when every ingestion failed on an unavailable dependency, 400 otherwise
func failedUploadStatus(outcomes []entity.IngestOutcome) int {
	if len(outcomes) == 0 {
		return http.StatusBadRequest
	}
	for _, o := range outcomes {
		if o.Err == nil || response.StatusFor(o.Err) != http.StatusServiceUnavailable {
			return http.StatusBadRequest
		}
	}
	return http.StatusServiceUnavailable
}
