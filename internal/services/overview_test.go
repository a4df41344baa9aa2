package services

import (
	"testing"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecencyOrder(t *testing.T) {
	tests := []struct {
		input   string
		want    RecencyOrder
		wantErr bool
	}{
		{input: "", want: RecencyByCreation},
		{input: "created", want: RecencyByCreation},
		{input: "date", want: RecencyByDate},
		{input: "id", wantErr: true},
		{input: "DATE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRecencyOrder(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildOverview(t *testing.T) {
	// Recorded in order a, b, c, d but dated out of order
	a := txn(100, models.TypeIncome, "Food", day(2024, 5, 10))
	b := txn(40, models.TypeExpense, "Bills", day(2024, 5, 1))
	c := txn(25, models.TypeExpense, "Food", day(2024, 5, 20))
	d := txn(10, models.TypeIncome, "Other", day(2024, 4, 1))
	for i, tr := range []*models.Transaction{&a, &b, &c, &d} {
		tr.CreatedAt = day(2024, 6, 1).Add(time.Duration(i) * time.Minute)
	}
	input := []models.Transaction{a, b, c, d}

	t.Run("by creation", func(t *testing.T) {
		overview := BuildOverview(input, RecencyByCreation)

		assert.Equal(t, 110.0, overview.Income)
		assert.Equal(t, 65.0, overview.Expenses)
		assert.Equal(t, 45.0, overview.Balance)
		assert.Equal(t, RecencyByCreation, overview.Order)

		require.Len(t, overview.RecentTransactions, HomeRecentLimit)
		assert.Equal(t, d.ID, overview.RecentTransactions[0].ID)
		assert.Equal(t, c.ID, overview.RecentTransactions[1].ID)
		assert.Equal(t, b.ID, overview.RecentTransactions[2].ID)
	})

	t.Run("by date", func(t *testing.T) {
		overview := BuildOverview(input, RecencyByDate)

		require.Len(t, overview.RecentTransactions, HomeRecentLimit)
		assert.Equal(t, c.ID, overview.RecentTransactions[0].ID)
		assert.Equal(t, a.ID, overview.RecentTransactions[1].ID)
		assert.Equal(t, b.ID, overview.RecentTransactions[2].ID)
	})

	// Input order untouched
	assert.Equal(t, []models.Transaction{a, b, c, d}, input)
}

func TestBuildOverview_Empty(t *testing.T) {
	overview := BuildOverview(nil, RecencyByDate)

	assert.Zero(t, overview.Balance)
	assert.NotNil(t, overview.RecentTransactions)
	assert.Empty(t, overview.RecentTransactions)
}

func TestRecentTransactions_NegativeLimitKeepsAll(t *testing.T) {
	input := []models.Transaction{
		txn(1, models.TypeIncome, "", day(2024, 1, 1)),
		txn(2, models.TypeIncome, "", day(2024, 1, 2)),
	}

	got := RecentTransactions(input, -1, RecencyByDate)
	require.Len(t, got, 2)
	assert.Equal(t, input[1].ID, got[0].ID)
}
