package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType is either income or expense
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// DefaultCategory is assigned when a transaction carries no category
const DefaultCategory = "General"

// Categories offered by the tracker forms
var Categories = []string{"General", "Food", "Shopping", "Bills", "Entertainment", "Other"}

// Transaction is a single income or expense event.
// Values are always fully populated; build them with NormalizeTransaction.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CategoryKey is the aggregation key for the transaction's category.
// A blank category folds into the default one.
func (t Transaction) CategoryKey() string {
	return strings.ToLower(normalizeCategory(t.Category))
}

// IsIncome reports whether t adds to the balance. Every other type,
// including a missing one, counts as an expense.
func (t Transaction) IsIncome() bool {
	return t.Type == TypeIncome
}

// TransactionFields carries the user-supplied fields of an add or edit intent.
// Nil fields are treated as missing.
type TransactionFields struct {
	Amount      any     `json:"amount"` // number or numeric string
	Description *string `json:"description,omitempty"`
	Type        *string `json:"type,omitempty"`
	Category    *string `json:"category,omitempty"`
	Date        *string `json:"date,omitempty"` // RFC3339 or YYYY-MM-DD
}

// ParsedTransaction represents a transaction after statement parsing but before import
type ParsedTransaction struct {
	TxnDate     time.Time `json:"txn_date"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`   // Negative for debit, positive for credit
	TxnType     string    `json:"txn_type"` // "credit" or "debit"
	RawData     string    `json:"raw_data"` // Original row
}

// Fields converts a parsed statement row into add-transaction fields.
// Credits become income, debits become expenses, amounts are absolute.
func (p ParsedTransaction) Fields(category string) TransactionFields {
	txnType := string(TypeExpense)
	if p.TxnType == "credit" || (p.TxnType == "" && p.Amount > 0) {
		txnType = string(TypeIncome)
	}
	description := p.Description
	date := p.TxnDate.Format(time.RFC3339)

	fields := TransactionFields{
		Amount:      math.Abs(p.Amount),
		Description: &description,
		Type:        &txnType,
		Date:        &date,
	}
	if category != "" {
		fields.Category = &category
	}
	return fields
}

// BankSchema defines the column structure for each bank's statement format
type BankSchema struct {
	BankName           string
	DateColumn         string
	DescriptionColumn  string
	DebitColumn        string // For banks with separate debit/credit columns
	CreditColumn       string
	AmountColumn       string // For banks with single amount column
	DrCrColumn         string // For banks with Dr/Cr indicator
	HasSeparateAmounts bool   // true if debit/credit are separate columns
}

// NormalizeTransaction builds a fully populated Transaction from raw fields.
// now stands in for a missing or unparseable date and stamps CreatedAt/UpdatedAt.
func NormalizeTransaction(id uuid.UUID, fields TransactionFields, now time.Time) Transaction {
	t := Transaction{
		ID:        id,
		Amount:    CoerceAmount(fields.Amount),
		Type:      TypeExpense,
		Category:  DefaultCategory,
		Date:      now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if fields.Description != nil {
		t.Description = *fields.Description
	}
	if fields.Type != nil {
		t.Type = ParseTransactionType(*fields.Type)
	}
	if fields.Category != nil {
		t.Category = normalizeCategory(*fields.Category)
	}
	if fields.Date != nil {
		if d, ok := ParseDateValue(*fields.Date); ok {
			t.Date = d
		}
	}
	return t
}

// ApplyFields returns a copy of t with every supplied field replaced
func ApplyFields(t Transaction, fields TransactionFields, now time.Time) Transaction {
	if fields.Amount != nil {
		t.Amount = CoerceAmount(fields.Amount)
	}
	if fields.Description != nil {
		t.Description = *fields.Description
	}
	if fields.Type != nil {
		t.Type = ParseTransactionType(*fields.Type)
	}
	if fields.Category != nil {
		t.Category = normalizeCategory(*fields.Category)
	}
	if fields.Date != nil {
		if d, ok := ParseDateValue(*fields.Date); ok {
			t.Date = d
		}
	}
	t.UpdatedAt = now
	return t
}

// ParseTransactionType maps free text onto a TransactionType.
// Anything other than "income" (case-insensitive) is an expense.
func ParseTransactionType(s string) TransactionType {
	if strings.EqualFold(strings.TrimSpace(s), string(TypeIncome)) {
		return TypeIncome
	}
	return TypeExpense
}

func normalizeCategory(s string) string {
	if strings.TrimSpace(s) == "" {
		return DefaultCategory
	}
	return s
}

// CoerceAmount converts an arbitrary amount value to float64.
// Non-numeric, NaN and infinite values become 0.
func CoerceAmount(val any) float64 {
	var f float64
	switch v := val.(type) {
	case nil:
		return 0
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	return SafeAmount(f)
}

// SafeAmount maps NaN and ±Inf to 0
func SafeAmount(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseDateValue parses an RFC3339 timestamp or a plain YYYY-MM-DD date (UTC)
func ParseDateValue(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
