package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/logging"
	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/ashmitsharp/fintrack-api/internal/services"
)

// maxStatementBytes mirrors the API's default upload limit
const maxStatementBytes = 10 << 20

// resolveNow parses raw as the summary date, falling back to the wall clock
func resolveNow(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	now, ok := models.ParseDateValue(raw)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC3339", raw)
	}
	return now, nil
}

// loadLedger imports every statement into a fresh in-memory ledger whose
// clock is pinned to now. Descriptions are categorized with the default rules.
func (a *cli) loadLedger(ctx context.Context, files []string, now time.Time) (*services.Ledger, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("at least one --file is required")
	}

	validator := services.NewFileValidator(maxStatementBytes)
	parser := services.NewParser().WithLogger(logging.Component(a.logger, "parser"))
	categorizer := services.NewCategorizer(services.NewMemoryRuleStore(services.DefaultRules()...))
	if err := categorizer.LoadRules(ctx); err != nil {
		return nil, fmt.Errorf("failed to load categorization rules: %w", err)
	}

	ledger := services.NewLedger(services.NewMemoryStore(),
		services.WithClock(func() time.Time { return now }),
		services.WithLogger(logging.Component(a.logger, "ledger")),
	)

	for _, path := range files {
		entries, err := a.readStatement(ctx, path, validator, parser, categorizer)
		if err != nil {
			return nil, err
		}
		imported, err := ledger.ImportTransactions(ctx, entries)
		if err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", path, err)
		}
		a.logger.Info("Statement imported", "file", path, "transactions", len(imported))
	}

	return ledger, nil
}

func (a *cli) readStatement(ctx context.Context, path string, validator *services.FileValidator, parser *services.Parser, categorizer *services.Categorizer) ([]models.TransactionFields, error) {
	filename := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statement: %w", err)
	}
	defer f.Close()

	result, err := validator.ValidateFile(f, filename, services.ContentTypeForFilename(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to validate %s: %w", path, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("invalid statement %s: %s", path, strings.Join(result.Errors, "; "))
	}

	parsed, err := parser.ParseFile(bytes.NewReader(result.Content), filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	entries := make([]models.TransactionFields, 0, len(parsed))
	for _, txn := range parsed {
		category, err := categorizer.Categorize(ctx, txn.Description)
		if err != nil {
			a.logger.Warn("Failed to categorize transaction", "description", txn.Description, "error", err)
			category = ""
		}
		entries = append(entries, txn.Fields(category))
	}
	return entries, nil
}
