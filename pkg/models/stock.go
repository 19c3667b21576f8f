// Package models defines the core data structures used throughout marketpulse.
package models

import "time"

// Country identifies the market an instrument trades in.
type Country string

const (
	CountryIN Country = "IN"
	CountryUS Country = "US"
)

// Valid reports whether c is a supported country code.
func (c Country) Valid() bool {
	return c == CountryIN || c == CountryUS
}

// Currency returns the quote currency for instruments of this country.
func (c Country) Currency() string {
	if c == CountryIN {
		return "INR"
	}
	return "USD"
}

// CountryInfo is the selectable country entry shown in the dashboard.
type CountryInfo struct {
	Code Country `json:"code"`
	Name string  `json:"name"`
	Flag string  `json:"flag"`
}

// AssetClass distinguishes indices from single stocks.
type AssetClass string

const (
	ClassIndex AssetClass = "index"
	ClassStock AssetClass = "stock"
)

// Instrument is a selectable index or stock. Defined once at startup.
type Instrument struct {
	Symbol      string     `json:"symbol"`       // e.g., "^NSEI", "RELIANCE.NS", "AAPL"
	DisplayName string     `json:"display_name"` // e.g., "NIFTY 50"
	Country     Country    `json:"country"`
	Class       AssetClass `json:"class"`
}

// QuoteSource records where a quote came from. It never changes what is presented.
type QuoteSource string

const (
	SourceLive QuoteSource = "live"
	SourceMock QuoteSource = "mock"
)

// Quote is a point-in-time snapshot of one instrument.
// Quotes are passed by value and never mutated after creation.
type Quote struct {
	Symbol           string      `json:"symbol"`
	DisplayName      string      `json:"display_name"`
	Currency         string      `json:"currency"` // "INR" or "USD"
	CurrentPrice     float64     `json:"current_price"`
	PreviousClose    float64     `json:"previous_close"`
	OpenPrice        float64     `json:"open_price"`
	DayHigh          float64     `json:"day_high"`
	DayLow           float64     `json:"day_low"`
	FiftyTwoWeekHigh float64     `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  float64     `json:"fifty_two_week_low"`
	MarketStateRaw   string      `json:"market_state_raw"`
	AsOf             int64       `json:"as_of"` // epoch seconds
	TimezoneLabel    string      `json:"timezone"`
	Change           float64     `json:"change"`
	ChangePercent    float64     `json:"change_percent"`
	Source           QuoteSource `json:"-"`
}

// AsOfTime returns AsOf as a time.Time.
func (q Quote) AsOfTime() time.Time {
	return time.Unix(q.AsOf, 0)
}

// ComputeChange returns currentPrice − previousClose and the percentage move.
// The percentage is exactly 0 when previousClose is 0.
func ComputeChange(currentPrice, previousClose float64) (change, changePercent float64) {
	change = currentPrice - previousClose
	if previousClose == 0 {
		return change, 0
	}
	return change, change / previousClose * 100
}
