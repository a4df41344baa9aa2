package services

import (
	"fmt"
	"slices"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/models"
)

// HomeRecentLimit is the number of transactions shown on the home overview
const HomeRecentLimit = 3

// RecencyOrder selects the timestamp used to rank transactions by recency
type RecencyOrder string

const (
	// RecencyByDate ranks by the transaction's own date
	RecencyByDate RecencyOrder = "date"
	// RecencyByCreation ranks by when the transaction was recorded
	RecencyByCreation RecencyOrder = "created"
)

// ParseRecencyOrder validates a recency order name; empty means RecencyByCreation
func ParseRecencyOrder(s string) (RecencyOrder, error) {
	switch RecencyOrder(s) {
	case "", RecencyByCreation:
		return RecencyByCreation, nil
	case RecencyByDate:
		return RecencyByDate, nil
	}
	return "", fmt.Errorf("invalid recency order %q: must be %q or %q", s, RecencyByDate, RecencyByCreation)
}

// RecentTransactions returns up to limit transactions, most recent first.
// It sorts a copy; equal timestamps keep their input order.
func RecentTransactions(transactions []models.Transaction, limit int, order RecencyOrder) []models.Transaction {
	sorted := slices.Clone(transactions)
	if sorted == nil {
		sorted = []models.Transaction{}
	}

	key := func(t models.Transaction) time.Time { return t.Date }
	if order == RecencyByCreation {
		key = func(t models.Transaction) time.Time { return t.CreatedAt }
	}
	slices.SortStableFunc(sorted, func(a, b models.Transaction) int {
		return key(b).Compare(key(a))
	})

	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Overview is the landing page view: running totals and the latest entries
type Overview struct {
	Income             float64              `json:"income"`
	Expenses           float64              `json:"expenses"`
	Balance            float64              `json:"balance"`
	RecentTransactions []models.Transaction `json:"recent_transactions"`
	Order              RecencyOrder         `json:"order"`
}

// BuildOverview computes the home overview for transactions
func BuildOverview(transactions []models.Transaction, order RecencyOrder) Overview {
	income, expenses := Totals(transactions)
	return Overview{
		Income:             income,
		Expenses:           expenses,
		Balance:            income - expenses,
		RecentTransactions: RecentTransactions(transactions, HomeRecentLimit, order),
		Order:              order,
	}
}

// Totals sums income and expenses. Any type other than income, including
// an empty one, is summed as an expense.
func Totals(transactions []models.Transaction) (income, expenses float64) {
	for _, t := range transactions {
		amount := models.SafeAmount(t.Amount)
		if t.IsIncome() {
			income += amount
		} else {
			expenses += amount
		}
	}
	return income, expenses
}
