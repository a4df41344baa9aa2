package handlers

import (
	"context"
	"fmt"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRulesApp(handler *RulesHandler) *fiber.App {
	app := fiber.New()
	app.Get("/rules", handler.GetRules)
	app.Post("/rules", handler.CreateRule)
	app.Get("/rules/stats", handler.GetRuleStats)
	app.Get("/rules/search", handler.SearchRules)
	app.Get("/rules/test", handler.TestRules)
	app.Delete("/rules/:id", handler.DeleteRule)
	return app
}

func newDefaultCategorizer() *services.Categorizer {
	return services.NewCategorizer(services.NewMemoryRuleStore(services.DefaultRules()...))
}

func TestGetRules(t *testing.T) {
	app := newRulesApp(NewRulesHandler(newDefaultCategorizer()))

	resp, err := app.Test(httptest.NewRequest("GET", "/rules", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, float64(len(services.DefaultRules())), result["count"])

	rules := result["rules"].([]interface{})
	// Highest priority first
	assert.Equal(t, float64(10), rules[0].(map[string]interface{})["priority"])
}

func TestGetRules_Failure(t *testing.T) {
	categorizer := &MockCategorizer{
		RulesFunc: func(context.Context) ([]services.Rule, error) {
			return nil, fmt.Errorf("database down")
		},
	}
	app := newRulesApp(NewRulesHandler(categorizer))

	resp, err := app.Test(httptest.NewRequest("GET", "/rules", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "failed to fetch rules", body["error"])
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.Contains(t, body, "details")
}

func TestCreateRule(t *testing.T) {
	categorizer := newDefaultCategorizer()
	app := newRulesApp(NewRulesHandler(categorizer))

	resp, err := app.Test(jsonRequest("POST", "/rules", `{"keyword":"  uber  ","category":"Other","priority":9}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, "uber", result["keyword"])
	assert.Equal(t, services.MatchSubstring, result["match_type"])
	_, err = uuid.Parse(result["id"].(string))
	assert.NoError(t, err)

	// The new rule is used right away
	category, err := categorizer.Categorize(context.Background(), "UBER TRIP 42")
	require.NoError(t, err)
	assert.Equal(t, "Other", category)
}

func TestCreateRule_Invalid(t *testing.T) {
	app := newRulesApp(NewRulesHandler(newDefaultCategorizer()))

	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{name: "invalid body", body: `{invalid`, wantError: "invalid request body"},
		{name: "missing keyword", body: `{"category":"Food"}`, wantError: "keyword and category are required"},
		{name: "blank category", body: `{"keyword":"cafe","category":"  "}`, wantError: "keyword and category are required"},
		{name: "bad regex", body: `{"keyword":"([","category":"Food","match_type":"regex"}`, wantError: "invalid rule"},
		{name: "unknown match type", body: `{"keyword":"cafe","category":"Food","match_type":"sounds-like"}`, wantError: "invalid rule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest("POST", "/rules", tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.wantError, decodeBody(t, resp)["error"])
		})
	}
}

func TestDeleteRule(t *testing.T) {
	rules := services.DefaultRules()
	app := newRulesApp(NewRulesHandler(newDefaultCategorizer()))

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{name: "existing", id: rules[0].ID.String(), wantStatus: fiber.StatusNoContent},
		{name: "already deleted", id: rules[0].ID.String(), wantStatus: fiber.StatusNotFound},
		{name: "invalid id", id: "abc", wantStatus: fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("DELETE", "/rules/"+tt.id, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestGetRuleStats(t *testing.T) {
	app := newRulesApp(NewRulesHandler(newDefaultCategorizer()))

	resp, err := app.Test(httptest.NewRequest("GET", "/rules/stats", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, float64(len(services.DefaultRules())), result["rules_count"])
	assert.Equal(t, float64(5), result["categories_count"])
}

func TestSearchRules(t *testing.T) {
	app := newRulesApp(NewRulesHandler(newDefaultCategorizer()))

	t.Run("by category", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/rules/search?q=entertainment", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Len(t, decodeBody(t, resp)["rules"], 3)
	})

	t.Run("limit", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/rules/search?q=food&limit=2", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Len(t, decodeBody(t, resp)["rules"], 2)
	})

	t.Run("missing query", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/rules/search", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestTestRules(t *testing.T) {
	app := newRulesApp(NewRulesHandler(newDefaultCategorizer()))

	tests := []struct {
		description  string
		wantCategory string
		wantMatched  bool
	}{
		{"NETFLIX SUBSCRIPTION", "Entertainment", true},
		{"UPI/123456/SWIGGY/ORDER", "Food", true},
		{"XYZ TRADERS", "General", false},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/rules/test?description="+url.QueryEscape(tt.description), nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			result := decodeBody(t, resp)
			assert.Equal(t, tt.description, result["description"])
			assert.Equal(t, tt.wantCategory, result["category"])
			assert.Equal(t, tt.wantMatched, result["matched"])
		})
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/rules/test", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
