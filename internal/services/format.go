package services

import (
	"strings"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol prefixes formatted amounts when none is configured
const DefaultCurrencySymbol = "₹"

// FormatAmount renders amount with two fraction digits, thousands separators
// and a currency symbol, e.g. -₹1,234.50.
func FormatAmount(amount float64, symbol string) string {
	d := decimal.NewFromFloat(models.SafeAmount(amount)).Round(2)

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	return sign + symbol + groupThousands(whole) + "." + frac
}

// FormatPercent renders a trend value such as 9900 as "+9900.0%"
func FormatPercent(p float64) string {
	d := decimal.NewFromFloat(models.SafeAmount(p)).Round(1)
	if d.IsPositive() {
		return "+" + d.StringFixed(1) + "%"
	}
	return d.StringFixed(1) + "%"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
