package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// DBTX is the subset of pgxpool.Pool the repositories use
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const transactionColumns = `id, amount, description, type, category, date, created_at, updated_at`

// TransactionRepository stores transactions in Postgres
type TransactionRepository struct {
	db DBTX
}

var _ services.TransactionStore = (*TransactionRepository)(nil)

// NewTransactionRepository creates a repository over db
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// List returns every transaction in insertion order
func (r *TransactionRepository) List(ctx context.Context) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	transactions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Transaction, error) {
		return scanTransaction(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	return transactions, nil
}

// Get returns the transaction with id
func (r *TransactionRepository) Get(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, services.ErrTransactionNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return txn, nil
}

// Insert stores a new transaction
func (r *TransactionRepository) Insert(ctx context.Context, txn models.Transaction) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txn.ID, txn.Amount, txn.Description, string(txn.Type), txn.Category, txn.Date, txn.CreatedAt, txn.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return services.ErrDuplicateTransaction
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Update replaces every mutable column of the stored transaction
func (r *TransactionRepository) Update(ctx context.Context, txn models.Transaction) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions
		 SET amount = $2, description = $3, type = $4, category = $5, date = $6, updated_at = $7
		 WHERE id = $1`,
		txn.ID, txn.Amount, txn.Description, string(txn.Type), txn.Category, txn.Date, txn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return services.ErrTransactionNotFound
	}
	return nil
}

// Delete removes the transaction with id
func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return services.ErrTransactionNotFound
	}
	return nil
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var txn models.Transaction
	var txnType string

	err := row.Scan(
		&txn.ID,
		&txn.Amount,
		&txn.Description,
		&txnType,
		&txn.Category,
		&txn.Date,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return models.Transaction{}, err
	}

	txn.Type = models.ParseTransactionType(txnType)
	return txn, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
