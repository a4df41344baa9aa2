package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newSummaryApp(handler *SummaryHandler) *fiber.App {
	app := fiber.New()
	app.Get("/summary", handler.GetSummary)
	app.Get("/summary/export", handler.ExportSummary)
	app.Get("/overview", handler.GetOverview)
	return app
}

func seededLedger(t *testing.T) *services.Ledger {
	t.Helper()
	ledger := newTestLedger(nil)
	addTransaction(t, ledger, 100, "income", "Food", "Refund", "2024-05-02")
	addTransaction(t, ledger, 40, "expense", "Bills", "Electricity", "2024-05-03")
	return ledger
}

func TestGetSummary(t *testing.T) {
	app := newSummaryApp(NewSummaryHandler(seededLedger(t), nil, "", discardLogger()))

	resp, err := app.Test(httptest.NewRequest("GET", "/summary", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)

	summary := result["summary"].(map[string]interface{})
	assert.Equal(t, float64(2), summary["total"])
	assert.Equal(t, float64(100), summary["income"])
	assert.Equal(t, float64(40), summary["expenses"])
	assert.Equal(t, float64(60), summary["balance"])
	assert.Equal(t, map[string]interface{}{"food": float64(100), "bills": float64(40)}, summary["categories"])
	assert.Len(t, summary["recent_transactions"], 2)

	trend := summary["trend"].(map[string]interface{})
	assert.Equal(t, float64(9900), trend["income"])
	assert.Equal(t, float64(3900), trend["expenses"])

	assert.Equal(t, "food", result["top_category"])
	assert.Equal(t, "2024-05-15T10:00:00Z", result["as_of"])

	display := result["display"].(map[string]interface{})
	assert.Equal(t, "₹100.00", display["income"])
	assert.Equal(t, "₹40.00", display["expenses"])
	assert.Equal(t, "₹60.00", display["balance"])
	assert.Equal(t, "+9900.0%", display["income_trend"])
	assert.Equal(t, "+3900.0%", display["expenses_trend"])
}

func TestGetSummary_NowParameter(t *testing.T) {
	app := newSummaryApp(NewSummaryHandler(seededLedger(t), nil, "", discardLogger()))

	resp, err := app.Test(httptest.NewRequest("GET", "/summary?now=2024-06-10", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)

	// May is now last month and June is empty
	trend := result["summary"].(map[string]interface{})["trend"].(map[string]interface{})
	assert.Equal(t, float64(-100), trend["income"])
	assert.Equal(t, float64(-100), trend["expenses"])
	assert.Equal(t, "-100.0%", result["display"].(map[string]interface{})["income_trend"])
	assert.Equal(t, "2024-06-10T00:00:00Z", result["as_of"])
}

func TestGetSummary_Empty(t *testing.T) {
	app := newSummaryApp(NewSummaryHandler(newTestLedger(nil), nil, "", discardLogger()))

	resp, err := app.Test(httptest.NewRequest("GET", "/summary", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)

	summary := result["summary"].(map[string]interface{})
	assert.Equal(t, float64(0), summary["total"])
	assert.Equal(t, map[string]interface{}{}, summary["categories"])
	assert.Equal(t, []interface{}{}, summary["recent_transactions"])
	assert.Equal(t, services.NoTopCategory, result["top_category"])
}

func TestGetSummary_Errors(t *testing.T) {
	t.Run("invalid now", func(t *testing.T) {
		app := newSummaryApp(NewSummaryHandler(newTestLedger(nil), nil, "", discardLogger()))

		resp, err := app.Test(httptest.NewRequest("GET", "/summary?now=yesterday", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("store failure", func(t *testing.T) {
		app := newSummaryApp(NewSummaryHandler(newTestLedger(failingStore{}), nil, "", discardLogger()))

		resp, err := app.Test(httptest.NewRequest("GET", "/summary", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "failed to compute summary", body["error"])
		assert.Equal(t, "INTERNAL_ERROR", body["code"])
		assert.NotContains(t, body, "details")
	})
}

func TestGetOverview(t *testing.T) {
	ledger := newTestLedger(nil)
	for i := 1; i <= 4; i++ {
		addTransaction(t, ledger, float64(i*10), "expense", "Food", fmt.Sprintf("Meal %d", i), fmt.Sprintf("2024-05-%02d", 10-i))
	}
	app := newSummaryApp(NewSummaryHandler(ledger, nil, "", discardLogger()))

	tests := []struct {
		name      string
		query     string
		wantOrder string
		wantFirst string
	}{
		// Same creation time everywhere, so insertion order wins
		{name: "default order", query: "", wantOrder: "created", wantFirst: "Meal 1"},
		{name: "by date", query: "?order=date", wantOrder: "date", wantFirst: "Meal 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", "/overview"+tt.query, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			result := decodeBody(t, resp)

			overview := result["overview"].(map[string]interface{})
			assert.Equal(t, tt.wantOrder, overview["order"])
			assert.Equal(t, float64(100), overview["expenses"])
			assert.Equal(t, float64(-100), overview["balance"])
			assert.Equal(t, "-₹100.00", result["balance_display"])

			recent := overview["recent_transactions"].([]interface{})
			require.Len(t, recent, services.HomeRecentLimit)
			assert.Equal(t, tt.wantFirst, recent[0].(map[string]interface{})["description"])
		})
	}
}

func TestGetOverview_InvalidOrder(t *testing.T) {
	app := newSummaryApp(NewSummaryHandler(newTestLedger(nil), nil, "", discardLogger()))

	resp, err := app.Test(httptest.NewRequest("GET", "/overview?order=amount", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestExportSummary_Download(t *testing.T) {
	app := newSummaryApp(NewSummaryHandler(seededLedger(t), nil, "", discardLogger()))

	resp, err := app.Test(httptest.NewRequest("GET", "/summary/export", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="fintrack-summary-2024-05.xlsx"`, resp.Header.Get("Content-Disposition"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{services.SheetOverview, services.SheetCategories, services.SheetRecent}, f.GetSheetList())
}

func TestExportSummary_Store(t *testing.T) {
	mockStorage := &MockStorageService{}
	app := newSummaryApp(NewSummaryHandler(seededLedger(t), mockStorage, "", discardLogger()))

	resp, err := app.Test(httptest.NewRequest("GET", "/summary/export?store=true", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	result := decodeBody(t, resp)

	key := "reports/2024/05/1715767200-mock-fintrack-summary-2024-05.xlsx"
	assert.Equal(t, key, result["file_key"])
	assert.Equal(t, "fintrack-summary-2024-05.xlsx", result["filename"])
	require.Contains(t, mockStorage.Uploaded, key)
	assert.NotEmpty(t, mockStorage.Uploaded[key])
}

func TestExportSummary_StoreErrors(t *testing.T) {
	t.Run("storage not configured", func(t *testing.T) {
		app := newSummaryApp(NewSummaryHandler(seededLedger(t), nil, "", discardLogger()))

		resp, err := app.Test(httptest.NewRequest("GET", "/summary/export?store=true", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("upload fails", func(t *testing.T) {
		mockStorage := &MockStorageService{
			UploadFileFunc: func(context.Context, string, string, io.Reader) error {
				return fmt.Errorf("access denied")
			},
		}
		app := newSummaryApp(NewSummaryHandler(seededLedger(t), mockStorage, "", discardLogger()))

		resp, err := app.Test(httptest.NewRequest("GET", "/summary/export?store=true", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "failed to store report", decodeBody(t, resp)["error"])
	})
}
