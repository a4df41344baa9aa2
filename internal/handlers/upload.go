package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/ashmitsharp/fintrack-api/internal/utils"
	"github.com/gofiber/fiber/v3"
)

const (
	// PresignedURLExpiryMinutes is the expiry time for presigned URLs in minutes
	PresignedURLExpiryMinutes = 15
	// PresignedURLExpirySeconds is the expiry time for presigned URLs in seconds
	PresignedURLExpirySeconds = PresignedURLExpiryMinutes * 60
)

// StorageService interface defines methods for S3 operations
type StorageService interface {
	GenerateUploadKey(prefix, filename string) (string, error)
	GeneratePresignedURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	UploadFile(ctx context.Context, key, contentType string, body io.Reader) error
	DownloadFile(ctx context.Context, key string) (io.ReadCloser, error)
}

// Parser interface defines methods for parsing bank statement files
type Parser interface {
	ParseFile(file io.Reader, filename string) ([]models.ParsedTransaction, error)
}

// FileValidator checks uploaded statements before they are parsed
type FileValidator interface {
	ValidateFile(reader io.Reader, filename, contentType string) (*services.ValidationResult, error)
	ValidateFilename(filename string) error
	ValidateMimeType(contentType string) error
}

// UploadHandler handles file upload-related requests
type UploadHandler struct {
	storage     StorageService
	parser      Parser
	validator   FileValidator
	categorizer Categorizer
	ledger      LedgerService
	logger      *slog.Logger
}

// NewUploadHandler creates a new upload handler instance.
// storage may be nil, in which case the presigned flow answers 503.
func NewUploadHandler(storage StorageService, parser Parser, validator FileValidator, categorizer Categorizer, ledger LedgerService, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{
		storage:     storage,
		parser:      parser,
		validator:   validator,
		categorizer: categorizer,
		ledger:      ledger,
		logger:      logger,
	}
}

// GetPresignedURL handles GET /v1/upload/presigned-url
// Query params: filename, content_type
func (h *UploadHandler) GetPresignedURL(c fiber.Ctx) error {
	if h.storage == nil {
		return utils.WriteError(c, utils.NewServiceUnavailableError("file storage"))
	}

	filename := c.Query("filename")
	contentType := c.Query("content_type")

	if filename == "" {
		return utils.WriteError(c, utils.NewBadRequestError("filename is required", nil))
	}
	if contentType == "" {
		return utils.WriteError(c, utils.NewBadRequestError("content_type is required", nil))
	}

	if err := h.validator.ValidateFilename(filename); err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("invalid filename", err.Error()))
	}
	if err := h.validator.ValidateMimeType(contentType); err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("unsupported file type", nil))
	}

	key, err := h.storage.GenerateUploadKey(services.StatementPrefix, filename)
	if err != nil {
		return utils.WriteError(c, utils.NewServerError("failed to generate upload key", err.Error()))
	}

	url, err := h.storage.GeneratePresignedURL(c.Context(), key, contentType, PresignedURLExpiryMinutes*time.Minute)
	if err != nil {
		return utils.WriteError(c, utils.NewServerError("failed to generate presigned URL", err.Error()))
	}

	return c.JSON(fiber.Map{
		"upload_url": url,
		"file_key":   key,
		"expires_in": PresignedURLExpirySeconds,
	})
}

// ProcessUploadRequest represents the request body for ProcessUpload
type ProcessUploadRequest struct {
	FileKey string `json:"file_key"`
}

// ProcessUpload imports a statement previously uploaded through a presigned URL
// POST /v1/upload/process
// Body: {"file_key": "statements/2024/03/1709985600-1a2b3c4d-statement.csv"}
func (h *UploadHandler) ProcessUpload(c fiber.Ctx) error {
	if h.storage == nil {
		return utils.WriteError(c, utils.NewServiceUnavailableError("file storage"))
	}

	var req ProcessUploadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("invalid request body", nil))
	}

	if req.FileKey == "" {
		return utils.WriteError(c, utils.NewBadRequestError("file_key is required", nil))
	}

	// Only statement objects may be imported
	if !isStatementKey(req.FileKey) {
		return utils.WriteError(c, utils.NewForbiddenError("cannot access this file"))
	}

	reader, err := h.storage.DownloadFile(c.Context(), req.FileKey)
	if err != nil {
		h.logger.Warn("statement download failed", "file_key", req.FileKey, "error", err)
		return utils.WriteError(c, utils.NewNotFoundError("file"))
	}
	defer reader.Close()

	filename := filepath.Base(req.FileKey)
	return h.importStatement(c, req.FileKey, filename, services.ContentTypeForFilename(filename), reader)
}

// UploadStatement handles POST /v1/upload with a multipart "file" field.
// The file is archived to storage when configured, then imported.
func (h *UploadHandler) UploadStatement(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("file is required", nil))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("failed to read uploaded file", nil))
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = services.ContentTypeForFilename(fileHeader.Filename)
	}

	return h.importStatement(c, "", fileHeader.Filename, contentType, file)
}

// importStatement validates, parses, categorizes and records a statement
func (h *UploadHandler) importStatement(c fiber.Ctx, fileKey, filename, contentType string, body io.Reader) error {
	result, err := h.validator.ValidateFile(body, filename, contentType)
	if err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("failed to read file", err.Error()))
	}
	if !result.Valid {
		return utils.WriteError(c, utils.NewBadRequestError("invalid file", result))
	}

	if fileKey == "" && h.storage != nil {
		key, err := h.storage.GenerateUploadKey(services.StatementPrefix, filename)
		if err == nil {
			err = h.storage.UploadFile(c.Context(), key, result.ContentType, bytes.NewReader(result.Content))
		}
		if err != nil {
			// The import does not depend on the archived copy
			h.logger.Warn("statement archive failed", "filename", filename, "error", err)
		} else {
			fileKey = key
		}
	}

	parsed, err := h.parser.ParseFile(bytes.NewReader(result.Content), filename)
	if err != nil {
		if !errors.Is(err, services.ErrUnsupportedFileType) {
			h.logger.Info("statement parse failed", "filename", filename, "error", err)
		}
		return utils.WriteError(c, utils.NewBadRequestError("failed to parse file", err.Error()))
	}

	entries := make([]models.TransactionFields, 0, len(parsed))
	categorizedCount := 0
	for _, txn := range parsed {
		category := ""
		if h.categorizer != nil {
			category, err = h.categorizer.Categorize(c.Context(), txn.Description)
			if err != nil {
				h.logger.Warn("failed to categorize transaction", "description", txn.Description, "error", err)
				category = ""
			}
		}
		if category != "" {
			categorizedCount++
		}
		entries = append(entries, txn.Fields(category))
	}

	imported, err := h.ledger.ImportTransactions(c.Context(), entries)
	if err != nil {
		h.logger.Error("statement import failed", "filename", filename, "error", err)
		return utils.WriteError(c, utils.NewServerError("failed to save transactions", nil))
	}

	var accuracyPercent float64
	if len(parsed) > 0 {
		accuracyPercent = (float64(categorizedCount) / float64(len(parsed))) * 100
	}

	summary := buildProcessSummary(fileKey, filename, parsed, categorizedCount, accuracyPercent)
	summary["transactions_imported"] = len(imported)
	return c.JSON(summary)
}

// isStatementKey reports whether fileKey lives under the statement prefix
func isStatementKey(fileKey string) bool {
	if strings.Contains(fileKey, "..") {
		return false
	}
	return strings.HasPrefix(fileKey, services.StatementPrefix+"/")
}

// buildProcessSummary creates the summary response with categorization stats
func buildProcessSummary(fileKey, filename string, transactions []models.ParsedTransaction, categorizedCount int, accuracyPercent float64) fiber.Map {
	totalRows := len(transactions)

	return fiber.Map{
		"file_key":            fileKey,
		"total_rows":          totalRows,
		"categorized":         categorizedCount,
		"uncategorized":       totalRows - categorizedCount,
		"accuracy_percent":    accuracyPercent,
		"transactions_parsed": totalRows,
		"bank_detected":       detectBankFromFilename(filename),
		"date_range":          calculateDateRange(transactions),
		"status":              "success",
	}
}

// calculateDateRange finds the earliest and latest transaction dates
func calculateDateRange(transactions []models.ParsedTransaction) fiber.Map {
	var minDate, maxDate time.Time

	if len(transactions) > 0 {
		minDate = transactions[0].TxnDate
		maxDate = transactions[0].TxnDate

		for _, txn := range transactions {
			if txn.TxnDate.Before(minDate) {
				minDate = txn.TxnDate
			}
			if txn.TxnDate.After(maxDate) {
				maxDate = txn.TxnDate
			}
		}
	}

	return fiber.Map{
		"from": minDate,
		"to":   maxDate,
	}
}

var bankKeywords = []struct {
	keyword string
	name    string
}{
	{"hdfc", "HDFC"},
	{"icici", "ICICI"},
	{"sbi", "SBI"},
	{"axis", "Axis"},
	{"kotak", "Kotak"},
}

// detectBankFromFilename attempts to detect the bank from the filename
func detectBankFromFilename(filename string) string {
	lowerFilename := strings.ToLower(filename)

	for _, bank := range bankKeywords {
		if strings.Contains(lowerFilename, bank.keyword) {
			return bank.name
		}
	}

	return services.UnknownBank
}
