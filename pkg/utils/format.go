// Package utils provides common utility functions for marketpulse.
package utils

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// fixed2 renders n with exactly two decimals.
func fixed2(n float64) string {
	return decimal.NewFromFloat(n).StringFixed(2)
}

// FormatNumber formats a price-like value compactly: 2 decimals below a
// thousand, then K, M and B suffixes. NaN and infinities render as "N/A".
// e.g., 24650 → "24.65K", 237.23 → "237.23"
func FormatNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "N/A"
	}

	switch {
	case n >= 1e9:
		return fixed2(n/1e9) + "B"
	case n >= 1e6:
		return fixed2(n/1e6) + "M"
	case n >= 1e3:
		return fixed2(n/1e3) + "K"
	default:
		return fixed2(n)
	}
}

// CurrencySymbol maps a currency code to its display symbol.
func CurrencySymbol(currency string) string {
	if strings.EqualFold(currency, "INR") {
		return "₹"
	}
	return "$"
}

// FormatPrice formats an amount with its currency symbol using FormatNumber.
func FormatPrice(currency string, amount float64) string {
	return CurrencySymbol(currency) + FormatNumber(amount)
}

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return "+" + fixed2(pct) + "%"
	}
	return fixed2(pct) + "%"
}

// FormatChange formats an absolute and percentage move.
// e.g., (59.5, 0.2419) → "+59.50 (+0.24%)"
func FormatChange(change, changePct float64) string {
	sign := ""
	if change >= 0 {
		sign = "+"
	}
	return sign + FormatNumber(change) + " (" + FormatPct(changePct) + ")"
}

// Direction returns "positive" for non-negative moves and "negative" otherwise.
func Direction(change float64) string {
	if change >= 0 {
		return "positive"
	}
	return "negative"
}

// CorrectionPercent is how far price sits below the high, as a share of the high.
func CorrectionPercent(high, price float64) float64 {
	if high == 0 {
		return 0
	}
	return (high - price) / high * 100
}

// UpsidePercent is the move needed from price to get back to the high.
func UpsidePercent(high, price float64) float64 {
	if price == 0 {
		return 0
	}
	return (high - price) / price * 100
}

// FormatCorrection renders a correction as "-x.xx%".
func FormatCorrection(pct float64) string {
	return "-" + fixed2(pct) + "%"
}

// FormatUpside renders an upside as "+x.xx%".
func FormatUpside(pct float64) string {
	return "+" + fixed2(pct) + "%"
}

// FormatINR formats a number in Indian Rupee format (₹12,34,567.89).
// Uses the Indian numbering system: last 3 digits, then groups of 2.
func FormatINR(amount float64) string {
	return formatGrouped("₹", amount, indianGroups)
}

// FormatUSD formats a number in US dollar format ($1,234,567.89).
func FormatUSD(amount float64) string {
	return formatGrouped("$", amount, westernGroups)
}

// FormatFull formats amount with full digit grouping for the given currency.
func FormatFull(currency string, amount float64) string {
	if strings.EqualFold(currency, "INR") {
		return FormatINR(amount)
	}
	return FormatUSD(amount)
}

func formatGrouped(symbol string, amount float64, group func(string) string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "N/A"
	}
	negative := amount < 0
	s := fixed2(math.Abs(amount))
	intPart, decPart, _ := strings.Cut(s, ".")

	formatted := group(intPart) + "." + decPart
	if negative {
		return "-" + symbol + formatted
	}
	return symbol + formatted
}

// indianGroups groups digits as last 3, then pairs from the right.
func indianGroups(s string) string {
	if len(s) <= 3 {
		return s
	}
	result := s[len(s)-3:]
	remaining := s[:len(s)-3]
	for len(remaining) > 2 {
		result = remaining[len(remaining)-2:] + "," + result
		remaining = remaining[:len(remaining)-2]
	}
	if remaining != "" {
		result = remaining + "," + result
	}
	return result
}

// westernGroups groups digits in threes.
func westernGroups(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
