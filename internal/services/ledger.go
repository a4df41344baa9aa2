package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/events"
	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/google/uuid"
)

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateTransaction = errors.New("transaction already exists")
)

// TransactionStore holds the transaction collection
type TransactionStore interface {
	List(ctx context.Context) ([]models.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (models.Transaction, error)
	Insert(ctx context.Context, txn models.Transaction) error
	Update(ctx context.Context, txn models.Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Ledger owns the transaction collection: it assigns identifiers, applies
// add/edit/delete intents and hands out snapshots for summarizing.
type Ledger struct {
	store     TransactionStore
	publisher events.Publisher
	clock     func() time.Time
	logger    *slog.Logger
}

// LedgerOption customizes a Ledger
type LedgerOption func(*Ledger)

// WithPublisher sets the publisher notified after each mutation
func WithPublisher(p events.Publisher) LedgerOption {
	return func(l *Ledger) { l.publisher = p }
}

// WithClock replaces time.Now
func WithClock(clock func() time.Time) LedgerOption {
	return func(l *Ledger) { l.clock = clock }
}

// WithLogger sets the ledger's logger
func WithLogger(logger *slog.Logger) LedgerOption {
	return func(l *Ledger) { l.logger = logger }
}

// NewLedger creates a ledger over store
func NewLedger(store TransactionStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:     store,
		publisher: events.NoopPublisher{},
		clock:     time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the ledger's current time
func (l *Ledger) Now() time.Time {
	return l.clock()
}

// Transactions returns a snapshot of the collection in insertion order
func (l *Ledger) Transactions(ctx context.Context) ([]models.Transaction, error) {
	transactions, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

// Transaction returns a single transaction
func (l *Ledger) Transaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	txn, err := l.store.Get(ctx, id)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return txn, nil
}

// AddTransaction normalizes fields into a new transaction and appends it
func (l *Ledger) AddTransaction(ctx context.Context, fields models.TransactionFields) (models.Transaction, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return models.Transaction{}, fmt.Errorf("generate transaction id: %w", err)
	}

	now := l.clock()
	txn := models.NormalizeTransaction(id, fields, now)
	if err := l.store.Insert(ctx, txn); err != nil {
		return models.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	l.logger.InfoContext(ctx, "Transaction added",
		"id", txn.ID,
		"type", txn.Type,
		"amount", txn.Amount,
		"category", txn.Category)
	l.publish(ctx, events.NewTransactionEvent(events.TransactionAdded, txn, now))

	return txn, nil
}

// EditTransaction replaces the supplied fields of the transaction matching id
func (l *Ledger) EditTransaction(ctx context.Context, id uuid.UUID, fields models.TransactionFields) (models.Transaction, error) {
	existing, err := l.store.Get(ctx, id)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}

	now := l.clock()
	updated := models.ApplyFields(existing, fields, now)
	if err := l.store.Update(ctx, updated); err != nil {
		return models.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}

	l.logger.InfoContext(ctx, "Transaction edited", "id", id)
	l.publish(ctx, events.NewTransactionEvent(events.TransactionEdited, updated, now))

	return updated, nil
}

// DeleteTransaction removes the transaction matching id
func (l *Ledger) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if err := l.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}

	l.logger.InfoContext(ctx, "Transaction deleted", "id", id)
	l.publish(ctx, events.NewTransactionEvent(events.TransactionDeleted, models.Transaction{ID: id}, l.clock()))

	return nil
}

// ImportTransactions adds every entry in order and stops at the first failure.
// The transactions added before the failure are returned with the error.
func (l *Ledger) ImportTransactions(ctx context.Context, entries []models.TransactionFields) ([]models.Transaction, error) {
	imported := make([]models.Transaction, 0, len(entries))
	for i, fields := range entries {
		txn, err := l.AddTransaction(ctx, fields)
		if err != nil {
			return imported, fmt.Errorf("import entry %d: %w", i, err)
		}
		imported = append(imported, txn)
	}
	return imported, nil
}

// Summary summarizes the current collection as of the ledger clock
func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	transactions, err := l.Transactions(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(transactions, l.clock()), nil
}

func (l *Ledger) publish(ctx context.Context, event events.TransactionEvent) {
	if err := l.publisher.Publish(ctx, event); err != nil {
		l.logger.WarnContext(ctx, "Failed to publish transaction event",
			"kind", event.Kind,
			"id", event.TransactionID,
			"error", err)
	}
}
