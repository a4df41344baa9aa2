package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

// MockStorageService is a mock implementation of StorageService for testing
type MockStorageService struct {
	GenerateUploadKeyFunc    func(prefix, filename string) (string, error)
	GeneratePresignedURLFunc func(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	UploadFileFunc           func(ctx context.Context, key, contentType string, body io.Reader) error
	DownloadFileFunc         func(ctx context.Context, key string) (io.ReadCloser, error)

	Uploaded map[string][]byte
}

func (m *MockStorageService) GenerateUploadKey(prefix, filename string) (string, error) {
	if m.GenerateUploadKeyFunc != nil {
		return m.GenerateUploadKeyFunc(prefix, filename)
	}
	return fmt.Sprintf("%s/2024/05/1715767200-mock-%s", prefix, filename), nil
}

func (m *MockStorageService) GeneratePresignedURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	if m.GeneratePresignedURLFunc != nil {
		return m.GeneratePresignedURLFunc(ctx, key, contentType, expiry)
	}
	return fmt.Sprintf("https://s3.amazonaws.com/bucket/%s?signature=mock", key), nil
}

func (m *MockStorageService) UploadFile(ctx context.Context, key, contentType string, body io.Reader) error {
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, key, contentType, body)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if m.Uploaded == nil {
		m.Uploaded = map[string][]byte{}
	}
	m.Uploaded[key] = data
	return nil
}

func (m *MockStorageService) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.DownloadFileFunc != nil {
		return m.DownloadFileFunc(ctx, key)
	}
	return nil, fmt.Errorf("file not found")
}

// MockParser is a mock implementation of Parser for testing
type MockParser struct {
	ParseFileFunc func(file io.Reader, filename string) ([]models.ParsedTransaction, error)
}

func (m *MockParser) ParseFile(file io.Reader, filename string) ([]models.ParsedTransaction, error) {
	if m.ParseFileFunc != nil {
		return m.ParseFileFunc(file, filename)
	}
	return nil, fmt.Errorf("parse failed")
}

// MockCategorizer is a mock implementation of Categorizer for testing
type MockCategorizer struct {
	CategorizeFunc func(ctx context.Context, description string) (string, error)
	RulesFunc      func(ctx context.Context) ([]services.Rule, error)
	AddRuleFunc    func(ctx context.Context, rule services.Rule) (services.Rule, error)
	DeleteRuleFunc func(ctx context.Context, id uuid.UUID) error
	GetStatsFunc   func(ctx context.Context) (services.RuleStats, error)
}

func (m *MockCategorizer) Categorize(ctx context.Context, description string) (string, error) {
	if m.CategorizeFunc != nil {
		return m.CategorizeFunc(ctx, description)
	}
	return "", nil
}

func (m *MockCategorizer) CategorizeOrDefault(ctx context.Context, description string) (string, error) {
	category, err := m.Categorize(ctx, description)
	if err != nil {
		return "", err
	}
	if category == "" {
		return models.DefaultCategory, nil
	}
	return category, nil
}

func (m *MockCategorizer) Rules(ctx context.Context) ([]services.Rule, error) {
	if m.RulesFunc != nil {
		return m.RulesFunc(ctx)
	}
	return []services.Rule{}, nil
}

func (m *MockCategorizer) AddRule(ctx context.Context, rule services.Rule) (services.Rule, error) {
	if m.AddRuleFunc != nil {
		return m.AddRuleFunc(ctx, rule)
	}
	rule.ID = uuid.New()
	return rule, nil
}

func (m *MockCategorizer) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if m.DeleteRuleFunc != nil {
		return m.DeleteRuleFunc(ctx, id)
	}
	return nil
}

func (m *MockCategorizer) GetStats(ctx context.Context) (services.RuleStats, error) {
	if m.GetStatsFunc != nil {
		return m.GetStatsFunc(ctx)
	}
	return services.RuleStats{}, nil
}

// keywordCategorizer categorizes descriptions containing a keyword
func keywordCategorizer(keywords map[string]string) *MockCategorizer {
	return &MockCategorizer{
		CategorizeFunc: func(_ context.Context, description string) (string, error) {
			upper := strings.ToUpper(description)
			for keyword, category := range keywords {
				if strings.Contains(upper, keyword) {
					return category, nil
				}
			}
			return "", nil
		},
	}
}

// failingStore fails every operation
type failingStore struct{}

var errStoreDown = errors.New("store unavailable")

func (failingStore) List(context.Context) ([]models.Transaction, error) { return nil, errStoreDown }
func (failingStore) Get(context.Context, uuid.UUID) (models.Transaction, error) {
	return models.Transaction{}, errStoreDown
}
func (failingStore) Insert(context.Context, models.Transaction) error { return errStoreDown }
func (failingStore) Update(context.Context, models.Transaction) error { return errStoreDown }
func (failingStore) Delete(context.Context, uuid.UUID) error          { return errStoreDown }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger(store services.TransactionStore) *services.Ledger {
	if store == nil {
		store = services.NewMemoryStore()
	}
	return services.NewLedger(store,
		services.WithClock(func() time.Time { return testNow }),
		services.WithLogger(discardLogger()),
	)
}

func strPtr(s string) *string { return &s }

func addTransaction(t *testing.T, ledger *services.Ledger, amount float64, txnType, category, description, date string) models.Transaction {
	t.Helper()
	fields := models.TransactionFields{
		Amount:      amount,
		Type:        strPtr(txnType),
		Category:    strPtr(category),
		Description: strPtr(description),
	}
	if date != "" {
		fields.Date = strPtr(date)
	}
	txn, err := ledger.AddTransaction(context.Background(), fields)
	require.NoError(t, err)
	return txn
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}
