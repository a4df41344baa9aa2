package services

import (
	"slices"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/models"
)

const (
	// RecentTransactionsLimit is the number of recent transactions on the dashboard
	RecentTransactionsLimit = 5
	// NoTopCategory is reported when there are no categories
	NoTopCategory = "N/A"
)

// Trend is the month-over-month change, in percent, per transaction type
type Trend struct {
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

// CategoryTotal is a category key with its summed amount
type CategoryTotal struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Summary is the derived view over a transaction collection
type Summary struct {
	Total              int                  `json:"total"`
	Income             float64              `json:"income"`
	Expenses           float64              `json:"expenses"`
	Balance            float64              `json:"balance"`
	Categories         map[string]float64   `json:"categories"`
	Breakdown          []CategoryTotal      `json:"breakdown"`
	RecentTransactions []models.Transaction `json:"recent_transactions"`
	Trend              Trend                `json:"trend"`
}

// TopCategory returns the category with the largest summed amount, or "N/A"
func (s Summary) TopCategory() string {
	if len(s.Breakdown) == 0 {
		return NoTopCategory
	}
	return s.Breakdown[0].Name
}

// Summarize computes the Summary of transactions as of now.
// The input slice is never modified.
func Summarize(transactions []models.Transaction, now time.Time) Summary {
	summary := Summary{
		Categories:         map[string]float64{},
		Breakdown:          []CategoryTotal{},
		RecentTransactions: []models.Transaction{},
	}
	if len(transactions) == 0 {
		return summary
	}

	summary.Total = len(transactions)

	// first-encountered order of category keys
	var order []string
	for _, t := range transactions {
		amount := models.SafeAmount(t.Amount)
		if t.IsIncome() {
			summary.Income += amount
		} else {
			summary.Expenses += amount
		}

		key := t.CategoryKey()
		if _, seen := summary.Categories[key]; !seen {
			order = append(order, key)
		}
		summary.Categories[key] += amount
	}
	summary.Balance = summary.Income - summary.Expenses

	for _, key := range order {
		summary.Breakdown = append(summary.Breakdown, CategoryTotal{Name: key, Amount: summary.Categories[key]})
	}
	slices.SortStableFunc(summary.Breakdown, func(a, b CategoryTotal) int {
		switch {
		case a.Amount > b.Amount:
			return -1
		case a.Amount < b.Amount:
			return 1
		}
		return 0
	})

	summary.RecentTransactions = RecentTransactions(transactions, RecentTransactionsLimit, RecencyByDate)
	summary.Trend = MonthlyTrend(transactions, now)

	return summary
}

// MonthlyTrend compares this calendar month's sums with the previous month's.
// A zero previous-month sum is replaced by 1, so growth from nothing reads as
// (thisMonth - 1) * 100 percent and an empty pair of months reads as -100.
func MonthlyTrend(transactions []models.Transaction, now time.Time) Trend {
	loc := now.Location()
	thisYear, thisMonth, _ := now.Date()
	lastYear, lastMonth := previousMonth(thisYear, thisMonth)

	var this, last []models.Transaction
	for _, t := range transactions {
		year, month, _ := t.Date.In(loc).Date()
		switch {
		case year == thisYear && month == thisMonth:
			this = append(this, t)
		case year == lastYear && month == lastMonth:
			last = append(last, t)
		}
	}

	thisIncome, thisExpenses := Totals(this)
	lastIncome, lastExpenses := Totals(last)
	return Trend{
		Income:   percentChange(thisIncome, lastIncome),
		Expenses: percentChange(thisExpenses, lastExpenses),
	}
}

func previousMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

func percentChange(current, previous float64) float64 {
	if previous == 0 {
		previous = 1
	}
	return (current/previous - 1) * 100
}
