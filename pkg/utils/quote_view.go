package utils

import (
	"time"

	"github.com/seenimoa/marketpulse/pkg/models"
)

// NewQuoteView renders q for display at instant now. The market status comes
// from MarketStatusAt, never from q.MarketStateRaw.
func NewQuoteView(q models.Quote, now time.Time) models.QuoteView {
	status := MarketStatusAt(q.Symbol, now)
	cur := q.Currency

	return models.QuoteView{
		Symbol:          q.Symbol,
		Name:            q.DisplayName,
		Currency:        cur,
		CurrencySymbol:  CurrencySymbol(cur),
		Price:           FormatPrice(cur, q.CurrentPrice),
		Change:          FormatChange(q.Change, q.ChangePercent),
		Direction:       Direction(q.Change),
		Open:            FormatPrice(cur, q.OpenPrice),
		PreviousClose:   FormatPrice(cur, q.PreviousClose),
		DayHigh:         FormatPrice(cur, q.DayHigh),
		DayLow:          FormatPrice(cur, q.DayLow),
		AllTimeHigh:     FormatPrice(cur, q.FiftyTwoWeekHigh),
		FiftyTwoWeekLow: FormatPrice(cur, q.FiftyTwoWeekLow),
		Correction:      FormatCorrection(CorrectionPercent(q.FiftyTwoWeekHigh, q.CurrentPrice)),
		Upside:          FormatUpside(UpsidePercent(q.FiftyTwoWeekHigh, q.CurrentPrice)),
		MarketStatus:    status,
		MarketStatusCSS: status.CSSClass(),
		LastUpdated:     FormatLastUpdated(q.Symbol, q.AsOf),
		Quote:           q,
	}
}
