package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashmitsharp/fintrack-api/internal/config"
	"github.com/ashmitsharp/fintrack-api/internal/database"
	"github.com/ashmitsharp/fintrack-api/internal/events"
	"github.com/ashmitsharp/fintrack-api/internal/logging"
	"github.com/ashmitsharp/fintrack-api/internal/middleware"
	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Info(".env file not found, using system environment variables")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid logging configuration: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	app := newApp(cfg, deps, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("fintrack API is running",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"health", fmt.Sprintf("http://localhost:%d/health", cfg.Port))
		return app.Listen(fmt.Sprintf(":%d", cfg.Port), fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}

// buildDependencies wires the stores, services and optional integrations
// selected by cfg. The returned cleanup releases every opened resource.
func buildDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		txnStore  services.TransactionStore
		ruleStore services.RuleStore
	)

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL, database.Options{
			MaxConnections:    cfg.DBMaxConnections,
			ConnectionTimeout: cfg.DBConnectionTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, pool.Close)
		logger.Info("Connected to database")

		if err := database.RunMigrations(pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		rules := database.NewRuleRepository(pool)
		seeded, err := rules.SeedRules(ctx, services.DefaultRules())
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to seed categorization rules: %w", err)
		}
		logger.Info("Categorization rules ready", "seeded", seeded)

		txnStore = database.NewTransactionRepository(pool)
		ruleStore = rules
	} else {
		logger.Warn("DATABASE_URL not set, transactions are kept in memory")
		txnStore = services.NewMemoryStore()
		ruleStore = services.NewMemoryRuleStore(services.DefaultRules()...)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect to message broker: %w", err)
		}
		closers = append(closers, func() {
			if err := amqpPublisher.Close(); err != nil {
				logger.Warn("Failed to close event publisher", "error", err)
			}
		})
		publisher = amqpPublisher
		logger.Info("Publishing transaction events", "exchange", cfg.AMQPExchange)
	}

	deps := &dependencies{
		ledger: services.NewLedger(txnStore,
			services.WithPublisher(publisher),
			services.WithLogger(logging.Component(logger, "ledger")),
		),
		categorizer: services.NewCategorizer(ruleStore),
		parser:      services.NewParser().WithLogger(logging.Component(logger, "parser")),
		validator:   services.NewFileValidator(cfg.MaxUploadBytes),
	}

	if err := deps.categorizer.LoadRules(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to load categorization rules: %w", err)
	}

	if cfg.StorageEnabled() {
		storage, err := services.NewStorageService(ctx, cfg.S3Bucket, cfg.S3Region, cfg.AWSEndpoint)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to initialize storage service: %w", err)
		}
		deps.storage = storage
		logger.Info("Storage service initialized", "bucket", storage.Bucket())
	} else {
		logger.Info("S3_BUCKET not set, presigned uploads are disabled")
	}

	if cfg.ClerkSecretKey != "" {
		deps.auth = middleware.ClerkAuth(cfg.ClerkSecretKey, logging.Component(logger, "auth"))
	} else {
		// Validate rejects this combination in production
		logger.Warn("CLERK_SECRET_KEY not set, API routes are unauthenticated")
	}

	return deps, cleanup, nil
}
