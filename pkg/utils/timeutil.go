package utils

import (
	"time"

	"github.com/seenimoa/marketpulse/pkg/models"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST *time.Location

// ET is the US Eastern time location used by NYSE and NASDAQ.
var ET *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
	ET, err = time.LoadLocation("America/New_York")
	if err != nil {
		// No DST information without tzdata; standard time is the closest fixed offset.
		ET = time.FixedZone("EST", -5*60*60)
	}
}

// Session boundaries in minutes since local midnight.
const (
	nseOpenMinute  = 9*60 + 15  // 09:15 IST
	nseCloseMinute = 15*60 + 30 // 15:30 IST

	usPreMarketMinute  = 4 * 60    // 04:00 ET
	usOpenMinute       = 9*60 + 30 // 09:30 ET
	usCloseMinute      = 16 * 60   // 16:00 ET
	usAfterHoursMinute = 20 * 60   // 20:00 ET
)

// NowIST returns the current time in IST.
func NowIST() time.Time {
	return time.Now().In(IST)
}

// ToIST converts a time.Time to IST.
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// ToET converts a time.Time to US Eastern time.
func ToET(t time.Time) time.Time {
	return t.In(ET)
}

// MarketStatusAt returns the session for symbol at instant now.
//
// The weekend check uses now's own location; session minutes are then taken
// in IST for Indian symbols and in US Eastern time for everything else. Any
// market state reported by the upstream feed is deliberately not consulted.
func MarketStatusAt(symbol string, now time.Time) models.MarketStatus {
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return models.StatusClosed
	}

	if IsIndianSymbol(symbol) {
		m := minutesOfDay(now.In(IST))
		switch {
		case m < nseOpenMinute:
			return models.StatusPreMarket
		case m <= nseCloseMinute:
			return models.StatusOpen
		default:
			return models.StatusClosed
		}
	}

	m := minutesOfDay(now.In(ET))
	switch {
	case m >= usOpenMinute && m <= usCloseMinute:
		return models.StatusOpen
	case m >= usPreMarketMinute && m < usOpenMinute:
		return models.StatusPreMarket
	case m > usCloseMinute && m <= usAfterHoursMinute:
		return models.StatusAfterHours
	default:
		return models.StatusClosed
	}
}

// MarketStatus returns the current session for symbol.
func MarketStatus(symbol string) models.MarketStatus {
	return MarketStatusAt(symbol, time.Now())
}

// TimezoneLabel returns the short zone label used on quotes for symbol.
func TimezoneLabel(symbol string) string {
	if IsIndianSymbol(symbol) {
		return "IST"
	}
	return "EST"
}

// FormatDateTimeIST formats a time.Time to "2006-01-02 15:04:05 IST".
func FormatDateTimeIST(t time.Time) string {
	return t.In(IST).Format("2006-01-02 15:04:05 IST")
}

// FormatDateTimeET formats a time.Time to "2006-01-02 15:04:05 ET".
func FormatDateTimeET(t time.Time) string {
	return t.In(ET).Format("2006-01-02 15:04:05 ET")
}

// FormatLastUpdated renders an epoch-seconds timestamp in the market's own zone.
func FormatLastUpdated(symbol string, epochSeconds int64) string {
	t := time.Unix(epochSeconds, 0)
	if IsIndianSymbol(symbol) {
		return FormatDateTimeIST(t)
	}
	return FormatDateTimeET(t)
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
