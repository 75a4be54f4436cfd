package validator

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
)

const pdfExtension = ".pdf"

var pdfMagic = []byte("%PDF-")

// Validator validates document uploads and questions
type Validator struct {
	cfg         config.FileUploadConfig
	maxQuestion int
}

func NewValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg, maxQuestion: defaultMaxQuestionChars}
}

// ValidateUpload checks file count, extensions and size bounds of one multipart upload
func (v *Validator) ValidateUpload(files []*multipart.FileHeader) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: files", entity.ErrMissingField)
	}

	if len(files) > v.cfg.MaxFileCount {
		return fmt.Errorf("%w: maximum %d files allowed, got %d", entity.ErrTooManyFiles, v.cfg.MaxFileCount, len(files))
	}

	var totalSize int64
	for _, fh := range files {
		if err := v.ValidateFile(fh.Filename, fh.Size); err != nil {
			return err
		}
		totalSize += fh.Size
	}

	if totalSize > v.cfg.MaxTotalSize {
		return fmt.Errorf("%w: total size is %d bytes (max %d)", entity.ErrTotalSizeTooLarge, totalSize, v.cfg.MaxTotalSize)
	}

	return nil
}

// ValidateFile checks a single file by name and size
func (v *Validator) ValidateFile(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != pdfExtension {
		return fmt.Errorf("%w: %q (only PDF files are accepted)", entity.ErrInvalidExtension, filename)
	}
	if size == 0 {
		return fmt.Errorf("%w: %q is empty", entity.ErrInvalidFile, filename)
	}
	if size > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: file %q is %d bytes (max %d)", entity.ErrFileTooLarge, filename, size, v.cfg.MaxFileSize)
	}
	return nil
}

// ValidatePDFContent checks the PDF signature of already read content
func ValidatePDFContent(filename string, content []byte) error {
	if !bytes.HasPrefix(bytes.TrimLeft(content, "\x00\t\r\n "), pdfMagic) {
		return fmt.Errorf("%w: %q is not a PDF document", entity.ErrInvalidFile, filename)
	}
	return nil
}

// SanitizeFilename strips directories and characters that break logs and citations
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	replacer := strings.NewReplacer(
		"\n", "",
		"\r", "",
		"\t", " ",
		"\"", "",
		"[", "(",
		"]", ")",
	)
	filename = strings.TrimSpace(replacer.Replace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return "document.pdf"
	}
	return filename
}
