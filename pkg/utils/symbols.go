package utils

import (
	"strings"
)

// Common user-input aliases resolved to exchange-qualified symbols.
var symbolAliases = map[string]string{
	"NIFTY":         "^NSEI",
	"NIFTY50":       "^NSEI",
	"NIFTY 50":      "^NSEI",
	"SENSEX":        "^BSESN",
	"BSE SENSEX":    "^BSESN",
	"BANKNIFTY":     "^NSEBANK",
	"NIFTYBANK":     "^NSEBANK",
	"NIFTY BANK":    "^NSEBANK",
	"NIFTYIT":       "^NSEIT",
	"NIFTY IT":      "^NSEIT",
	"NIFTYNEXT50":   "NIFTYNXT50.NS",
	"NIFTY NEXT 50": "NIFTYNXT50.NS",
	"RIL":           "RELIANCE.NS",
	"INFOSYS":       "INFY.NS",
	"HUL":           "HINDUNILVR.NS",
	"SBI":           "SBIN.NS",
	"AIRTEL":        "BHARTIARTL.NS",
	"L&T":           "LT.NS",
	"SPX":           "^GSPC",
	"S&P 500":       "^GSPC",
	"SP500":         "^GSPC",
	"DOW":           "^DJI",
	"DOW JONES":     "^DJI",
	"NASDAQ":        "^IXIC",
	"RUSSELL 2000":  "^RUT",
	"RUSSELL":       "^RUT",
	"VIX":           "^VIX",
	"GOOGLE":        "GOOGL",
	"FACEBOOK":      "META",
}

// Symbol prefixes of Indian indices.
var indianIndexPrefixes = []string{"^NSEI", "^BSESN", "^NSEBANK", "^NSEIT"}

// NormalizeSymbol uppercases and trims user input, strips a leading "$" and
// resolves well-known aliases. Unknown input is returned normalized but
// otherwise untouched.
func NormalizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	// Remove $ prefix if present (common in chat)
	symbol = strings.TrimPrefix(symbol, "$")

	if canonical, ok := symbolAliases[symbol]; ok {
		return canonical
	}
	return symbol
}

// IsIndianSymbol classifies a symbol as trading on an Indian exchange: a .NS
// suffix, a known NSE/BSE index prefix, or an NSE/BSE substring.
func IsIndianSymbol(symbol string) bool {
	if strings.HasSuffix(symbol, ".NS") {
		return true
	}
	for _, p := range indianIndexPrefixes {
		if strings.HasPrefix(symbol, p) {
			return true
		}
	}
	return strings.Contains(symbol, "NSE") || strings.Contains(symbol, "BSE")
}
