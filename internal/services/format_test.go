package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount float64
		symbol string
		want   string
	}{
		{0, "₹", "₹0.00"},
		{5, "₹", "₹5.00"},
		{999.999, "₹", "₹1,000.00"},
		{1234.5, "₹", "₹1,234.50"},
		{1234567.891, "$", "$1,234,567.89"},
		{-60, "₹", "-₹60.00"},
		{-0.001, "₹", "₹0.00"},
		{100000, "", "100,000.00"},
		{math.NaN(), "₹", "₹0.00"},
		{math.Inf(1), "₹", "₹0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.amount, tt.symbol))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+9900.0%", FormatPercent(9900))
	assert.Equal(t, "-100.0%", FormatPercent(-100))
	assert.Equal(t, "0.0%", FormatPercent(0))
	assert.Equal(t, "+12.3%", FormatPercent(12.345))
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "1", groupThousands("1"))
	assert.Equal(t, "123", groupThousands("123"))
	assert.Equal(t, "1,234", groupThousands("1234"))
	assert.Equal(t, "123,456", groupThousands("123456"))
	assert.Equal(t, "1,234,567", groupThousands("1234567"))
}
