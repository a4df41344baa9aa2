package events

import (
	"encoding/json"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/google/uuid"
)

// Kind names a transaction change
type Kind string

const (
	TransactionAdded   Kind = "transaction.added"
	TransactionEdited  Kind = "transaction.edited"
	TransactionDeleted Kind = "transaction.deleted"
)

// TransactionEvent is published after every successful ledger mutation.
// Transaction is nil for deletions.
type TransactionEvent struct {
	Kind          Kind                `json:"kind"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	Transaction   *models.Transaction `json:"transaction,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
}

// NewTransactionEvent creates an event for txn
func NewTransactionEvent(kind Kind, txn models.Transaction, at time.Time) TransactionEvent {
	event := TransactionEvent{
		Kind:          kind,
		TransactionID: txn.ID,
		Timestamp:     at,
	}
	if kind != TransactionDeleted {
		event.Transaction = &txn
	}
	return event
}

// ToJSON converts the event to JSON bytes
func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event
func TransactionEventFromJSON(data []byte) (TransactionEvent, error) {
	var event TransactionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return TransactionEvent{}, err
	}
	return event, nil
}
