package main

import (
	"log/slog"

	"github.com/ashmitsharp/fintrack-api/internal/config"
	"github.com/ashmitsharp/fintrack-api/internal/handlers"
	"github.com/ashmitsharp/fintrack-api/internal/logging"
	"github.com/ashmitsharp/fintrack-api/internal/middleware"
	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/ashmitsharp/fintrack-api/internal/utils"
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
)

type dependencies struct {
	ledger      *services.Ledger
	categorizer *services.Categorizer
	parser      *services.Parser
	validator   *services.FileValidator

	// Optional integrations, nil when not configured
	storage handlers.StorageService
	auth    fiber.Handler
}

// newApp builds the fiber application and registers every route
func newApp(cfg *config.Config, deps *dependencies, logger *slog.Logger) *fiber.App {
	httpLogger := logging.Component(logger, "http")

	app := fiber.New(fiber.Config{
		AppName:      "fintrack API v1.0",
		ErrorHandler: utils.NewErrorHandler(httpLogger, !cfg.IsProduction()),
		// Multipart overhead on top of the largest accepted statement
		BodyLimit: int(cfg.MaxUploadBytes) + 1<<20,
	})

	// Apply global middleware
	app.Use(recoverer.New())
	app.Use(middleware.RequestLogger(httpLogger))
	app.Use(middleware.CORS(cfg.AllowedOrigins))

	uploadHandler := handlers.NewUploadHandler(deps.storage, deps.parser, deps.validator, deps.categorizer, deps.ledger, logging.Component(logger, "upload"))
	transactionHandler := handlers.NewTransactionHandler(deps.ledger, deps.categorizer, cfg.CurrencySymbol, logging.Component(logger, "transactions"))
	summaryHandler := handlers.NewSummaryHandler(deps.ledger, deps.storage, cfg.CurrencySymbol, logging.Component(logger, "summary"))
	rulesHandler := handlers.NewRulesHandler(deps.categorizer)

	// Health check endpoint (public)
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "fintrack-api",
		})
	})

	// API v1 routes
	v1 := app.Group("/v1")

	// Public routes
	v1.Get("/ping", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})

	// Protected routes (require authentication when Clerk is configured)
	protected := v1
	if deps.auth != nil {
		protected = v1.Group("", deps.auth)
	}

	protected.Get("/me", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals(middleware.LocalSubject),
		})
	})

	// Transaction routes
	protected.Get("/transactions", transactionHandler.GetTransactions)
	protected.Get("/transactions/stats", transactionHandler.GetTransactionStats)
	protected.Get("/transactions/:id", transactionHandler.GetTransaction)
	protected.Post("/transactions", transactionHandler.CreateTransaction)
	protected.Put("/transactions/bulk", transactionHandler.BulkUpdateTransactions)
	protected.Put("/transactions/:id", transactionHandler.UpdateTransaction)
	protected.Delete("/transactions/:id", transactionHandler.DeleteTransaction)

	// Dashboard routes
	protected.Get("/summary", summaryHandler.GetSummary)
	protected.Get("/summary/export", summaryHandler.ExportSummary)
	protected.Get("/overview", summaryHandler.GetOverview)

	// Upload routes
	protected.Post("/upload", uploadHandler.UploadStatement)
	protected.Get("/upload/presigned-url", uploadHandler.GetPresignedURL)
	protected.Post("/upload/process", uploadHandler.ProcessUpload)

	// Categorization rules routes
	protected.Get("/rules", rulesHandler.GetRules)
	protected.Get("/rules/stats", rulesHandler.GetRuleStats)
	protected.Get("/rules/search", rulesHandler.SearchRules)
	protected.Get("/rules/test", rulesHandler.TestRules)
	protected.Post("/rules", rulesHandler.CreateRule)
	protected.Delete("/rules/:id", rulesHandler.DeleteRule)

	return app
}
