package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/ashmitsharp/fintrack-api/internal/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// Categorizer interface defines methods for categorizing transactions
// and managing the rules behind them
type Categorizer interface {
	Categorize(ctx context.Context, description string) (string, error)
	CategorizeOrDefault(ctx context.Context, description string) (string, error)
	Rules(ctx context.Context) ([]services.Rule, error)
	AddRule(ctx context.Context, rule services.Rule) (services.Rule, error)
	DeleteRule(ctx context.Context, id uuid.UUID) error
	GetStats(ctx context.Context) (services.RuleStats, error)
}

// RulesHandler handles categorization rule management
type RulesHandler struct {
	categorizer Categorizer
}

// NewRulesHandler creates a new rules handler instance
func NewRulesHandler(categorizer Categorizer) *RulesHandler {
	return &RulesHandler{
		categorizer: categorizer,
	}
}

// CreateRuleRequest represents the request body for creating a rule
type CreateRuleRequest struct {
	Keyword             string  `json:"keyword"`
	Category            string  `json:"category"`
	Priority            int32   `json:"priority"`
	MatchType           string  `json:"match_type"` // substring, regex, exact, fuzzy
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

// GetRules returns all rules, highest priority first
// GET /v1/rules
func (h *RulesHandler) GetRules(c fiber.Ctx) error {
	rules, err := h.categorizer.Rules(c.Context())
	if err != nil {
		return utils.WriteError(c, utils.NewServerError("failed to fetch rules", err.Error()))
	}

	return c.JSON(fiber.Map{
		"rules": rules,
		"count": len(rules),
	})
}

// CreateRule creates a new categorization rule
// POST /v1/rules
func (h *RulesHandler) CreateRule(c fiber.Ctx) error {
	var req CreateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("invalid request body", nil))
	}

	if strings.TrimSpace(req.Keyword) == "" || strings.TrimSpace(req.Category) == "" {
		return utils.WriteError(c, utils.NewBadRequestError("keyword and category are required", nil))
	}

	rule, err := h.categorizer.AddRule(c.Context(), services.Rule{
		Keyword:             req.Keyword,
		Category:            req.Category,
		Priority:            req.Priority,
		MatchType:           strings.ToLower(req.MatchType),
		SimilarityThreshold: req.SimilarityThreshold,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidRule) {
			return utils.WriteError(c, utils.NewBadRequestError("invalid rule", err.Error()))
		}
		return utils.WriteError(c, utils.NewServerError("failed to create rule", err.Error()))
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

// DeleteRule removes a rule
// DELETE /v1/rules/:id
func (h *RulesHandler) DeleteRule(c fiber.Ctx) error {
	ruleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.WriteError(c, utils.NewBadRequestError("invalid rule ID", nil))
	}

	if err := h.categorizer.DeleteRule(c.Context(), ruleID); err != nil {
		if errors.Is(err, services.ErrRuleNotFound) {
			return utils.WriteError(c, utils.NewNotFoundError("rule"))
		}
		return utils.WriteError(c, utils.NewServerError("failed to delete rule", err.Error()))
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetRuleStats returns statistics about categorization rules
// GET /v1/rules/stats
func (h *RulesHandler) GetRuleStats(c fiber.Ctx) error {
	stats, err := h.categorizer.GetStats(c.Context())
	if err != nil {
		return utils.WriteError(c, utils.NewServerError("failed to get stats", err.Error()))
	}
	return c.JSON(stats)
}

// SearchRules searches for rules by keyword or category
// GET /v1/rules/search?q=keyword&limit=10
func (h *RulesHandler) SearchRules(c fiber.Ctx) error {
	query := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if query == "" {
		return utils.WriteError(c, utils.NewBadRequestError("search query (q) is required", nil))
	}

	limit := parseBoundedInt(c.Query("limit"), 20, 1, maxPageLimit)

	rules, err := h.categorizer.Rules(c.Context())
	if err != nil {
		return utils.WriteError(c, utils.NewServerError("failed to search rules", err.Error()))
	}

	matches := []services.Rule{}
	for _, rule := range rules {
		if len(matches) == limit {
			break
		}
		if strings.Contains(strings.ToLower(rule.Keyword), query) || strings.Contains(strings.ToLower(rule.Category), query) {
			matches = append(matches, rule)
		}
	}

	return c.JSON(fiber.Map{
		"rules": matches,
		"query": query,
	})
}

// TestRules shows which category the current rules assign to a description
// GET /v1/rules/test?description=SWIGGY ORDER
func (h *RulesHandler) TestRules(c fiber.Ctx) error {
	description := c.Query("description")
	if strings.TrimSpace(description) == "" {
		return utils.WriteError(c, utils.NewBadRequestError("description is required", nil))
	}

	category, err := h.categorizer.Categorize(c.Context(), description)
	if err != nil {
		return utils.WriteError(c, utils.NewServerError("failed to categorize description", err.Error()))
	}

	matched := category != ""
	if !matched {
		category = models.DefaultCategory
	}

	return c.JSON(fiber.Map{
		"description": description,
		"category":    category,
		"matched":     matched,
	})
}
