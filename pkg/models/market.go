package models

// MarketStatus is the trading session derived from wall-clock time and symbol.
type MarketStatus string

const (
	StatusOpen       MarketStatus = "Open"
	StatusPreMarket  MarketStatus = "Pre-Market"
	StatusAfterHours MarketStatus = "After-Hours"
	StatusClosed     MarketStatus = "Closed"
)

// IsOpen reports whether the regular session is running.
func (s MarketStatus) IsOpen() bool { return s == StatusOpen }

// CSSClass returns the class name the dashboard uses for the status badge.
func (s MarketStatus) CSSClass() string {
	if s == StatusOpen {
		return "open"
	}
	return "closed"
}

// RefreshState is the orchestrator's state between refresh steps.
type RefreshState string

const (
	StateIdle         RefreshState = "idle"
	StateFetching     RefreshState = "fetching"
	StateMockFallback RefreshState = "mock_fallback"
)

// QuoteView is a Quote rendered for display. Live and synthetic quotes produce
// the same fields with the same formatting.
type QuoteView struct {
	Symbol          string       `json:"symbol"`
	Name            string       `json:"name"`
	Currency        string       `json:"currency"`
	CurrencySymbol  string       `json:"currency_symbol"`
	Price           string       `json:"price"`
	Change          string       `json:"change"`              // e.g., "+59.50 (+0.24%)"
	Direction       string       `json:"direction"`           // "positive" or "negative"
	Open            string       `json:"open"`
	PreviousClose   string       `json:"previous_close"`
	DayHigh         string       `json:"day_high"`
	DayLow          string       `json:"day_low"`
	AllTimeHigh     string       `json:"all_time_high"`
	FiftyTwoWeekLow string       `json:"fifty_two_week_low"`
	Correction      string       `json:"correction"`          // e.g., "-6.19%"
	Upside          string       `json:"upside"`              // e.g., "+6.60%"
	MarketStatus    MarketStatus `json:"market_status"`
	MarketStatusCSS string       `json:"market_status_class"`
	LastUpdated     string       `json:"last_updated"`
	Quote           Quote        `json:"quote"`
}
