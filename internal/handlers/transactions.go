package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/ashmitsharp/fintrack-api/internal/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// LedgerService is the transaction collection the handlers operate on
type LedgerService interface {
	Now() time.Time
	Transactions(ctx context.Context) ([]models.Transaction, error)
	Transaction(ctx context.Context, id uuid.UUID) (models.Transaction, error)
	AddTransaction(ctx context.Context, fields models.TransactionFields) (models.Transaction, error)
	EditTransaction(ctx context.Context, id uuid.UUID, fields models.TransactionFields) (models.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	ImportTransactions(ctx context.Context, entries []models.TransactionFields) ([]models.Transaction, error)
}

// TransactionHandler handles transaction-related requests
type TransactionHandler struct {
	ledger      LedgerService
	categorizer Categorizer
	currency    string
	logger      *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(ledger LedgerService, categorizer Categorizer, currency string, logger *slog.Logger) *TransactionHandler {
	if currency == "" {
		currency = services.DefaultCurrencySymbol
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionHandler{
		ledger:      ledger,
		categorizer: categorizer,
		currency:    currency,
		logger:      logger,
	}
}

// GetTransactions returns the collection with its running balance
// GET /v1/transactions?type=income|expense&category=Food&limit=50&offset=0
func (h *TransactionHandler) GetTransactions(c fiber.Ctx) error {
	all, err := h.ledger.Transactions(c.Context())
	if err != nil {
		h.logger.Error("failed to list transactions", "error", err)
		return utils.WriteError(c, utils.NewServerError("failed to fetch transactions", nil))
	}

	txnType := strings.ToLower(c.Query("type"))
	if txnType != "" && txnType != string(models.TypeIncome) && txnType != string(models.TypeExpense) {
		return utils.WriteError(c, utils.NewBadRequestError("invalid type parameter. Must be one of: income, expense", nil))
	}
	category := strings.ToLower(strings.TrimSpace(c.Query("category")))

	limit := parseBoundedInt(c.Query("limit"), defaultPageLimit, 1, maxPageLimit)
	offset := parseBoundedInt(c.Query("offset"), 0, 0, -1)

	filtered := make([]models.Transaction, 0, len(all))
	for _, txn := range all {
		if txnType != "" && string(txn.Type) != txnType {
			continue
		}
		if category != "" && txn.CategoryKey() != category {
			continue
		}
		filtered = append(filtered, txn)
	}

	page := []models.Transaction{}
	if offset < len(filtered) {
		end := min(offset+limit, len(filtered))
		page = filtered[offset:end]
	}

	income, expenses := services.Totals(all)
	balance := income - expenses

	return utils.PaginatedResponse(c, "transactions", page, limit, offset, len(filtered), fiber.Map{
		"balance":         balance,
		"balance_display": services.FormatAmount(balance, h.currency),
	})
}

// GetTransaction returns a single transaction
// GET /v1/transactions/:id
func (h *TransactionHandler) GetTransaction(c fiber.Ctx) error {
	txnID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("invalid transaction ID", nil))
	}

	txn, err := h.ledger.Transaction(c.Context(), txnID)
	if err != nil {
		return h.transactionError(c, txnID, err)
	}
	return c.JSON(txn)
}

// CreateTransaction records a new transaction
// POST /v1/transactions
// Body: {"amount": 250, "description": "Groceries", "type": "expense", "category": "Food", "date": "2024-05-15"}
func (h *TransactionHandler) CreateTransaction(c fiber.Ctx) error {
	var fields models.TransactionFields
	if err := c.Bind().JSON(&fields); err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("invalid request body", nil))
	}

	txn, err := h.ledger.AddTransaction(c.Context(), fields)
	if err != nil {
		h.logger.Error("failed to add transaction", "error", err)
		return utils.WriteError(c, utils.NewServerError("failed to create transaction", nil))
	}
	return c.Status(fiber.StatusCreated).JSON(txn)
}

// UpdateTransaction applies a partial update; omitted fields keep their values
// PUT /v1/transactions/:id
func (h *TransactionHandler) UpdateTransaction(c fiber.Ctx) error {
	txnID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("invalid transaction ID", nil))
	}

	var fields models.TransactionFields
	if err := c.Bind().JSON(&fields); err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("invalid request body", nil))
	}

	txn, err := h.ledger.EditTransaction(c.Context(), txnID, fields)
	if err != nil {
		return h.transactionError(c, txnID, err)
	}
	return c.JSON(txn)
}

// DeleteTransaction removes a transaction
// DELETE /v1/transactions/:id
func (h *TransactionHandler) DeleteTransaction(c fiber.Ctx) error {
	txnID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("invalid transaction ID", nil))
	}

	if err := h.ledger.DeleteTransaction(c.Context(), txnID); err != nil {
		return h.transactionError(c, txnID, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BulkUpdateRequest represents the request body for BulkUpdateTransactions.
// An empty Category re-runs the categorization rules on each description.
type BulkUpdateRequest struct {
	TransactionIDs []string `json:"transaction_ids"`
	Category       string   `json:"category"`
}

// BulkUpdateTransactions recategorizes multiple transactions at once
// PUT /v1/transactions/bulk
func (h *TransactionHandler) BulkUpdateTransactions(c fiber.Ctx) error {
	var req BulkUpdateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("invalid request body", nil))
	}

	if len(req.TransactionIDs) == 0 {
		return utils.WriteError(c, utils.NewBadRequestError("transaction_ids cannot be empty", nil))
	}

	category := strings.TrimSpace(req.Category)
	if category == "" && h.categorizer == nil {
		return utils.WriteError(c, utils.NewBadRequestError("category is required", nil))
	}

	updatedCount := 0
	failedIDs := []string{}

	for _, txnIDStr := range req.TransactionIDs {
		txnID, err := uuid.Parse(txnIDStr)
		if err != nil {
			failedIDs = append(failedIDs, txnIDStr)
			continue
		}

		target := category
		if target == "" {
			txn, err := h.ledger.Transaction(c.Context(), txnID)
			if err != nil {
				failedIDs = append(failedIDs, txnIDStr)
				continue
			}
			target, err = h.categorizer.CategorizeOrDefault(c.Context(), txn.Description)
			if err != nil {
				h.logger.Warn("failed to categorize transaction", "id", txnID, "error", err)
				failedIDs = append(failedIDs, txnIDStr)
				continue
			}
		}

		if _, err := h.ledger.EditTransaction(c.Context(), txnID, models.TransactionFields{Category: &target}); err != nil {
			failedIDs = append(failedIDs, txnIDStr)
			continue
		}
		updatedCount++
	}

	response := fiber.Map{
		"updated_count": updatedCount,
		"total_count":   len(req.TransactionIDs),
		"message":       fmt.Sprintf("Successfully updated %d transactions", updatedCount),
	}

	if len(failedIDs) > 0 {
		response["failed_ids"] = failedIDs
		response["failed_count"] = len(failedIDs)
	}

	return c.JSON(response)
}

// GetTransactionStats returns counts by type and categorization coverage
// GET /v1/transactions/stats
func (h *TransactionHandler) GetTransactionStats(c fiber.Ctx) error {
	all, err := h.ledger.Transactions(c.Context())
	if err != nil {
		h.logger.Error("failed to list transactions", "error", err)
		return utils.WriteError(c, utils.NewServerError("failed to fetch transaction statistics", nil))
	}

	var incomeCount, expenseCount, uncategorizedCount int
	for _, txn := range all {
		if txn.Type == models.TypeIncome {
			incomeCount++
		} else {
			expenseCount++
		}
		if txn.Category == models.DefaultCategory {
			uncategorizedCount++
		}
	}

	var accuracyPercent float64
	if len(all) > 0 {
		accuracyPercent = float64(len(all)-uncategorizedCount) / float64(len(all)) * 100
	}

	return c.JSON(fiber.Map{
		"total_transactions":  len(all),
		"income_count":        incomeCount,
		"expense_count":       expenseCount,
		"categorized_count":   len(all) - uncategorizedCount,
		"uncategorized_count": uncategorizedCount,
		"accuracy_percent":    accuracyPercent,
	})
}

// transactionError maps ledger errors onto HTTP responses
func (h *TransactionHandler) transactionError(c fiber.Ctx, id uuid.UUID, err error) error {
	if errors.Is(err, services.ErrTransactionNotFound) {
		return utils.WriteError(c, utils.NewNotFoundError("transaction"))
	}
	h.logger.Error("transaction operation failed", "id", id, "error", err)
	return utils.WriteError(c, utils.NewServerError("failed to process transaction", nil))
}

// parseBoundedInt parses s, falling back to def when it is invalid or outside
// [lo, hi]. A negative hi leaves the upper end open.
func parseBoundedInt(s string, def, lo, hi int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || (hi >= 0 && n > hi) {
		return def
	}
	return n
}
