package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount decimal.Decimal) string {
	formatted := groupThousands(amount.Abs().StringFixed(2))
	if amount.IsNegative() {
		return "-$" + formatted
	}
	return "$" + formatted
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return sign + groupThousands(amount.Abs().StringFixed(2))
}

// PerShare returns a four-decimal currency string for per-share magnitudes (e.g., "$0.4286").
func PerShare(amount decimal.Decimal) string {
	formatted := groupThousands(amount.Abs().StringFixed(4))
	if amount.IsNegative() {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Shares returns a share count with thousands separators and no trailing fraction
// when the count is whole (e.g., "1,500,000").
func Shares(count decimal.Decimal) string {
	if count.Equal(count.Truncate(0)) {
		return groupThousands(count.Truncate(0).StringFixed(0))
	}
	return groupThousands(count.StringFixed(4))
}

// Percent renders a percentage value with two decimal places (e.g., "12.50%").
// The input is already scaled to percent, not a fraction.
func Percent(value decimal.Decimal) string {
	return value.StringFixed(2) + "%"
}

func groupThousands(formatted string) string {
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	if len(parts) == 2 {
		return intPart + "." + parts[1]
	}
	return intPart
}
