// Package catalog holds the static universe of selectable instruments along
// with reference values (verified 52-week highs, demo base prices).
//
// Everything here is process-wide and read-only after package init.
package catalog

import (
	"github.com/seenimoa/marketpulse/pkg/models"
)

// Default selection on startup.
const (
	DefaultCountry = models.CountryIN
	DefaultSymbol  = "^NSEI"
)

// Base prices used when a symbol has no entry in basePrices.
const (
	DefaultBasePriceIN = 1500.50
	DefaultBasePriceUS = 150.20
)

var countries = []models.CountryInfo{
	{Code: models.CountryIN, Name: "India", Flag: "🇮🇳"},
	{Code: models.CountryUS, Name: "United States", Flag: "🇺🇸"},
}

var indianIndices = []models.Instrument{
	index("^NSEI", "NIFTY 50", models.CountryIN),
	index("^BSESN", "BSE SENSEX", models.CountryIN),
	index("^NSEBANK", "NIFTY BANK", models.CountryIN),
	index("^NSEIT", "NIFTY IT", models.CountryIN),
	index("NIFTYNXT50.NS", "NIFTY NEXT 50", models.CountryIN),
}

var usIndices = []models.Instrument{
	index("^GSPC", "S&P 500", models.CountryUS),
	index("^DJI", "DOW JONES", models.CountryUS),
	index("^IXIC", "NASDAQ", models.CountryUS),
	index("^RUT", "RUSSELL 2000", models.CountryUS),
	index("^VIX", "VIX", models.CountryUS),
}

var indianStocks = []models.Instrument{
	stock("RELIANCE.NS", "Reliance Industries", models.CountryIN),
	stock("TCS.NS", "TCS", models.CountryIN),
	stock("HDFCBANK.NS", "HDFC Bank", models.CountryIN),
	stock("INFY.NS", "Infosys", models.CountryIN),
	stock("HINDUNILVR.NS", "Hindustan Unilever", models.CountryIN),
	stock("ICICIBANK.NS", "ICICI Bank", models.CountryIN),
	stock("SBIN.NS", "SBI", models.CountryIN),
	stock("BHARTIARTL.NS", "Bharti Airtel", models.CountryIN),
	stock("ITC.NS", "ITC", models.CountryIN),
	stock("LT.NS", "L&T", models.CountryIN),
}

var usStocks = []models.Instrument{
	stock("AAPL", "Apple Inc.", models.CountryUS),
	stock("MSFT", "Microsoft", models.CountryUS),
	stock("GOOGL", "Alphabet (Google)", models.CountryUS),
	stock("AMZN", "Amazon", models.CountryUS),
	stock("TSLA", "Tesla", models.CountryUS),
	stock("META", "Meta (Facebook)", models.CountryUS),
	stock("NVDA", "NVIDIA", models.CountryUS),
	stock("NFLX", "Netflix", models.CountryUS),
	stock("JPM", "JPMorgan Chase", models.CountryUS),
	stock("V", "Visa", models.CountryUS),
}

// knownATH holds verified 52-week highs. Upstream figures for these symbols
// have been unreliable; an entry here always wins.
var knownATH = map[string]float64{
	"^NSEI":         26277.35,
	"^BSESN":        85978.25,
	"^NSEBANK":      54467.35,
	"^NSEIT":        46088.90,
	"NIFTYNXT50.NS": 77179.90,
	"RELIANCE.NS":   3217.90,
	"TCS.NS":        4592.25,
	"HDFCBANK.NS":   1880.00,
	"INFY.NS":       2006.45,
	"ICICIBANK.NS":  1362.35,
	"^GSPC":         5669.67,
	"^DJI":          41198.08,
	"^IXIC":         18671.07,
	"AAPL":          237.23,
	"MSFT":          468.35,
	"GOOGL":         191.75,
	"AMZN":          201.20,
	"NVDA":          140.76,
	"META":          544.23,
}

// basePrices are the demo anchors for synthetic quotes.
var basePrices = map[string]float64{
	"^NSEI":         24650.00,
	"^BSESN":        80600.00,
	"^NSEBANK":      51200.00,
	"^NSEIT":        41800.00,
	"NIFTYNXT50.NS": 68500.00,
	"RELIANCE.NS":   2950.00,
	"TCS.NS":        4100.00,
	"HDFCBANK.NS":   1650.00,
	"INFY.NS":       1850.00,
	"HINDUNILVR.NS": 2700.00,
	"ICICIBANK.NS":  1250.00,
	"SBIN.NS":       820.00,
	"BHARTIARTL.NS": 1550.00,
	"ITC.NS":        480.00,
	"LT.NS":         3600.00,
	"^GSPC":         5600.00,
	"^DJI":          41000.00,
	"^IXIC":         17800.00,
	"^RUT":          2200.00,
	"^VIX":          16.50,
	"AAPL":          225.00,
	"MSFT":          420.00,
	"GOOGL":         165.00,
	"AMZN":          185.00,
	"TSLA":          240.00,
	"META":          520.00,
	"NVDA":          120.00,
	"NFLX":          680.00,
	"JPM":           215.00,
	"V":             275.00,
}

var bySymbol = func() map[string]models.Instrument {
	m := make(map[string]models.Instrument)
	for _, group := range [][]models.Instrument{indianIndices, usIndices, indianStocks, usStocks} {
		for _, inst := range group {
			m[inst.Symbol] = inst
		}
	}
	return m
}()

func index(symbol, name string, c models.Country) models.Instrument {
	return models.Instrument{Symbol: symbol, DisplayName: name, Country: c, Class: models.ClassIndex}
}

func stock(symbol, name string, c models.Country) models.Instrument {
	return models.Instrument{Symbol: symbol, DisplayName: name, Country: c, Class: models.ClassStock}
}

// Countries returns the selectable countries in display order.
func Countries() []models.CountryInfo {
	return append([]models.CountryInfo(nil), countries...)
}

// Indices returns the indices of a country in display order.
func Indices(c models.Country) []models.Instrument {
	switch c {
	case models.CountryIN:
		return append([]models.Instrument(nil), indianIndices...)
	case models.CountryUS:
		return append([]models.Instrument(nil), usIndices...)
	}
	return nil
}

// Stocks returns the stocks of a country in display order.
func Stocks(c models.Country) []models.Instrument {
	switch c {
	case models.CountryIN:
		return append([]models.Instrument(nil), indianStocks...)
	case models.CountryUS:
		return append([]models.Instrument(nil), usStocks...)
	}
	return nil
}

// Instruments returns indices followed by stocks for a country.
func Instruments(c models.Country) []models.Instrument {
	return append(Indices(c), Stocks(c)...)
}

// Lookup finds an instrument by exact symbol.
func Lookup(symbol string) (models.Instrument, bool) {
	inst, ok := bySymbol[symbol]
	return inst, ok
}

// Contains reports whether symbol belongs to country c.
func Contains(c models.Country, symbol string) bool {
	inst, ok := bySymbol[symbol]
	return ok && inst.Country == c
}

// DisplayName returns the catalog name for symbol, or the symbol itself.
func DisplayName(symbol string) string {
	if inst, ok := bySymbol[symbol]; ok {
		return inst.DisplayName
	}
	return symbol
}

// DefaultSymbolFor returns the first index of a country.
func DefaultSymbolFor(c models.Country) string {
	idx := Indices(c)
	if len(idx) == 0 {
		return DefaultSymbol
	}
	return idx[0].Symbol
}

// IsIndexOf reports whether symbol is one of country c's indices.
func IsIndexOf(c models.Country, symbol string) bool {
	inst, ok := bySymbol[symbol]
	return ok && inst.Country == c && inst.Class == models.ClassIndex
}

// KnownATH returns the verified 52-week high for symbol, if any.
func KnownATH(symbol string) (float64, bool) {
	v, ok := knownATH[symbol]
	return v, ok
}

// BasePrice returns the demo base price for symbol, falling back to the
// country default when the symbol is not in the table.
func BasePrice(symbol string, c models.Country) float64 {
	if v, ok := basePrices[symbol]; ok {
		return v
	}
	if c == models.CountryIN {
		return DefaultBasePriceIN
	}
	return DefaultBasePriceUS
}
