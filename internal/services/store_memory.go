package services

import (
	"context"
	"slices"
	"sync"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps transactions in insertion order in process memory
type MemoryStore struct {
	mu           sync.RWMutex
	transactions []models.Transaction
}

// NewMemoryStore creates an empty store, optionally seeded
func NewMemoryStore(seed ...models.Transaction) *MemoryStore {
	return &MemoryStore{transactions: slices.Clone(seed)}
}

// List returns a snapshot of all transactions
func (s *MemoryStore) List(ctx context.Context) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out, nil
}

// Get returns the transaction with id
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Transaction{}, ErrTransactionNotFound
	}
	return s.transactions[i], nil
}

// Insert appends txn
func (s *MemoryStore) Insert(ctx context.Context, txn models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(txn.ID) >= 0 {
		return ErrDuplicateTransaction
	}
	s.transactions = append(s.transactions, txn)
	return nil
}

// Update replaces the stored transaction with the same ID
func (s *MemoryStore) Update(ctx context.Context, txn models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(txn.ID)
	if i < 0 {
		return ErrTransactionNotFound
	}
	s.transactions[i] = txn
	return nil
}

// Delete removes the transaction with id
func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrTransactionNotFound
	}
	s.transactions = slices.Delete(s.transactions, i, i+1)
	return nil
}

func (s *MemoryStore) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(s.transactions, func(t models.Transaction) bool { return t.ID == id })
}
