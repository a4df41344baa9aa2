package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/ashmitsharp/fintrack-api/internal/utils"
	"github.com/gofiber/fiber/v3"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SummaryHandler serves the dashboard, home overview and report export
type SummaryHandler struct {
	ledger   LedgerService
	storage  StorageService
	currency string
	logger   *slog.Logger
}

// NewSummaryHandler creates a summary handler. storage may be nil.
func NewSummaryHandler(ledger LedgerService, storage StorageService, currency string, logger *slog.Logger) *SummaryHandler {
	if currency == "" {
		currency = services.DefaultCurrencySymbol
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryHandler{
		ledger:   ledger,
		storage:  storage,
		currency: currency,
		logger:   logger,
	}
}

// DisplayValues holds preformatted strings for the dashboard cards
type DisplayValues struct {
	Income        string `json:"income"`
	Expenses      string `json:"expenses"`
	Balance       string `json:"balance"`
	IncomeTrend   string `json:"income_trend"`
	ExpensesTrend string `json:"expenses_trend"`
}

// SummaryResponse is the dashboard payload
type SummaryResponse struct {
	Summary     services.Summary `json:"summary"`
	TopCategory string           `json:"top_category"`
	Display     DisplayValues    `json:"display"`
	AsOf        time.Time        `json:"as_of"`
}

// GetSummary handles GET /v1/summary
// Query params: now (YYYY-MM-DD or RFC3339, defaults to the current time)
func (h *SummaryHandler) GetSummary(c fiber.Ctx) error {
	now, err := h.resolveNow(c)
	if err != nil {
		return utils.WriteError(c, utils.NewBadRequestError(err.Error(), nil))
	}

	summary, err := h.summarize(c, now)
	if err != nil {
		return utils.WriteError(c, utils.NewServerError("failed to compute summary", nil))
	}

	return c.JSON(SummaryResponse{
		Summary:     summary,
		TopCategory: summary.TopCategory(),
		Display: DisplayValues{
			Income:        services.FormatAmount(summary.Income, h.currency),
			Expenses:      services.FormatAmount(summary.Expenses, h.currency),
			Balance:       services.FormatAmount(summary.Balance, h.currency),
			IncomeTrend:   services.FormatPercent(summary.Trend.Income),
			ExpensesTrend: services.FormatPercent(summary.Trend.Expenses),
		},
		AsOf: now,
	})
}

// GetOverview handles GET /v1/overview
// Query params: order (created|date, defaults to created)
func (h *SummaryHandler) GetOverview(c fiber.Ctx) error {
	order, err := services.ParseRecencyOrder(c.Query("order"))
	if err != nil {
		return utils.WriteError(c, utils.NewBadRequestError(err.Error(), nil))
	}

	transactions, err := h.ledger.Transactions(c.Context())
	if err != nil {
		h.logger.Error("failed to list transactions", "error", err)
		return utils.WriteError(c, utils.NewServerError("failed to fetch transactions", nil))
	}

	overview := services.BuildOverview(transactions, order)
	return c.JSON(fiber.Map{
		"overview":        overview,
		"balance_display": services.FormatAmount(overview.Balance, h.currency),
	})
}

// ExportSummary handles GET /v1/summary/export
// Query params: now, store (true uploads the workbook to storage instead of returning it)
func (h *SummaryHandler) ExportSummary(c fiber.Ctx) error {
	now, err := h.resolveNow(c)
	if err != nil {
		return utils.WriteError(c, utils.NewBadRequestError(err.Error(), nil))
	}

	summary, err := h.summarize(c, now)
	if err != nil {
		return utils.WriteError(c, utils.NewServerError("failed to compute summary", nil))
	}

	buf, err := services.ExportReport(summary, now)
	if err != nil {
		h.logger.Error("failed to build report", "error", err)
		return utils.WriteError(c, utils.NewServerError("failed to build report", nil))
	}
	filename := services.ReportFilename(now)

	if c.Query("store") == "true" {
		if h.storage == nil {
			return utils.WriteError(c, utils.NewServiceUnavailableError("file storage"))
		}
		key, err := h.storage.GenerateUploadKey(services.ReportPrefix, filename)
		if err != nil {
			return utils.WriteError(c, utils.NewServerError("failed to generate report key", err.Error()))
		}
		if err := h.storage.UploadFile(c.Context(), key, xlsxContentType, bytes.NewReader(buf.Bytes())); err != nil {
			h.logger.Error("failed to store report", "file_key", key, "error", err)
			return utils.WriteError(c, utils.NewServerError("failed to store report", nil))
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"file_key": key,
			"filename": filename,
		})
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}

// resolveNow reads the now query parameter, defaulting to the ledger clock
func (h *SummaryHandler) resolveNow(c fiber.Ctx) (time.Time, error) {
	raw := c.Query("now")
	if raw == "" {
		return h.ledger.Now(), nil
	}
	now, ok := models.ParseDateValue(raw)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid now parameter %q: use YYYY-MM-DD or RFC3339", raw)
	}
	return now, nil
}

func (h *SummaryHandler) summarize(c fiber.Ctx, now time.Time) (services.Summary, error) {
	transactions, err := h.ledger.Transactions(c.Context())
	if err != nil {
		h.logger.Error("failed to list transactions", "error", err)
		return services.Summary{}, err
	}
	return services.Summarize(transactions, now), nil
}
