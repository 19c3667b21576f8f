package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/seenimoa/marketpulse/internal/catalog"
	"github.com/seenimoa/marketpulse/internal/infra"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// Upstream defaults.
const (
	DefaultChartURL     = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultFetchTimeout = 8000 * time.Millisecond
	maxBodyBytes        = 1 << 20
)

// YFinanceConfig configures the chart source. Zero values pick defaults.
type YFinanceConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RatePerSec   float64
	Burst        int
	UserAgent    string
	APIKey       string
	APIKeyHeader string
	Client       *http.Client
	Logger       zerolog.Logger
	Now          func() time.Time
}

// YFinance fetches single quotes from the Yahoo Finance v8 chart endpoint.
type YFinance struct {
	baseURL string
	timeout time.Duration
	headers map[string]string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
	now     func() time.Time
}

// NewYFinance creates a new Yahoo Finance chart source.
func NewYFinance(cfg YFinanceConfig) *YFinance {
	y := &YFinance{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		headers: map[string]string{},
		client:  cfg.Client,
		limiter: infra.NewRateLimiter(cfg.RatePerSec, cfg.Burst),
		log:     cfg.Logger,
		now:     cfg.Now,
	}
	if y.baseURL == "" {
		y.baseURL = DefaultChartURL
	}
	if y.timeout <= 0 {
		y.timeout = DefaultFetchTimeout
	}
	if y.now == nil {
		y.now = time.Now
	}
	if cfg.UserAgent != "" {
		y.headers["User-Agent"] = cfg.UserAgent
	}
	if cfg.APIKey != "" {
		h := cfg.APIKeyHeader
		if h == "" {
			h = "X-API-Key"
		}
		y.headers[h] = cfg.APIKey
	}
	return y
}

// Name returns the data source name with the upstream host.
func (y *YFinance) Name() string {
	if u, err := url.Parse(y.baseURL); err == nil && u.Host != "" {
		return "Yahoo Finance (" + u.Host + ")"
	}
	return "Yahoo Finance"
}

// Timeout returns the per-fetch deadline.
func (y *YFinance) Timeout() time.Duration { return y.timeout }

// --- Yahoo Finance v8 chart types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta *yfChartMeta `json:"meta"`
}

// Every field is optional upstream; pointers distinguish absent from zero.
type yfChartMeta struct {
	Symbol               string   `json:"symbol"`
	Currency             string   `json:"currency"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	PreviousClose        *float64 `json:"previousClose"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose"`
	RegularMarketOpen    *float64 `json:"regularMarketOpen"`
	RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
	FiftyTwoWeekHigh     *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      *float64 `json:"fiftyTwoWeekLow"`
	MarketState          string   `json:"marketState"`
	RegularMarketTime    *int64   `json:"regularMarketTime"`
	Timezone             string   `json:"timezone"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Fetch issues one GET for symbol bounded by the configured timeout. Waiting
// for a rate-limit token counts against the same deadline. There are no
// retries.
func (y *YFinance) Fetch(ctx context.Context, symbol string) (models.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	if err := y.limiter.Wait(ctx); err != nil {
		// rate.Limiter reports "would exceed deadline" before ctx expires.
		if ctx.Err() == nil {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return models.Quote{}, classify(symbol, err)
	}

	endpoint := y.baseURL + "/" + url.PathEscape(symbol)
	start := y.now()
	body, err := doGet(ctx, y.client, endpoint, y.headers)
	if err != nil {
		ne := classify(symbol, err)
		y.log.Debug().Str("symbol", symbol).Str("kind", ne.Kind.String()).Int("status", ne.Status).Msg("chart request failed")
		return models.Quote{}, ne
	}
	defer body.Close()

	var resp yfChartResponse
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(&resp); err != nil {
		// A deadline hit mid-body surfaces as a read error.
		if ctx.Err() != nil {
			return models.Quote{}, classify(symbol, ctx.Err())
		}
		return models.Quote{}, &NetworkError{Kind: KindMalformed, Symbol: symbol, Err: fmt.Errorf("parse chart: %w", err)}
	}

	if len(resp.Chart.Result) == 0 || resp.Chart.Result[0].Meta == nil {
		err := ErrNoResult
		if resp.Chart.Error != nil {
			err = fmt.Errorf("%w: %s: %s", ErrNoResult, resp.Chart.Error.Code, resp.Chart.Error.Description)
		}
		return models.Quote{}, &NetworkError{Kind: KindMalformed, Symbol: symbol, Err: err}
	}

	q := y.normalize(symbol, *resp.Chart.Result[0].Meta)
	y.log.Debug().Str("symbol", symbol).Float64("price", q.CurrentPrice).Dur("took", y.now().Sub(start)).Msg("chart quote")
	return q, nil
}

// normalize fills absent meta fields with defaults and applies the verified
// 52-week high.
func (y *YFinance) normalize(requested string, m yfChartMeta) models.Quote {
	symbol := m.Symbol
	if symbol == "" {
		symbol = requested
	}

	previousClose := 0.0
	switch {
	case m.PreviousClose != nil:
		previousClose = *m.PreviousClose
	case m.ChartPreviousClose != nil:
		previousClose = *m.ChartPreviousClose
	}

	current := previousClose
	if m.RegularMarketPrice != nil {
		current = *m.RegularMarketPrice
	}

	high52 := current * 1.2
	if m.FiftyTwoWeekHigh != nil {
		high52 = *m.FiftyTwoWeekHigh
	}
	if ath, ok := catalog.KnownATH(symbol); ok {
		high52 = ath
	} else if ath, ok := catalog.KnownATH(requested); ok {
		high52 = ath
	}

	asOf := y.now().Unix()
	if m.RegularMarketTime != nil {
		asOf = *m.RegularMarketTime
	}

	change, pct := models.ComputeChange(current, previousClose)
	return models.Quote{
		Symbol:           symbol,
		DisplayName:      catalog.DisplayName(symbol),
		Currency:         orDefault(m.Currency, "USD"),
		CurrentPrice:     current,
		PreviousClose:    previousClose,
		OpenPrice:        floatOr(m.RegularMarketOpen, previousClose),
		DayHigh:          floatOr(m.RegularMarketDayHigh, current),
		DayLow:           floatOr(m.RegularMarketDayLow, current),
		FiftyTwoWeekHigh: high52,
		FiftyTwoWeekLow:  floatOr(m.FiftyTwoWeekLow, current*0.8),
		MarketStateRaw:   orDefault(m.MarketState, "CLOSED"),
		AsOf:             asOf,
		TimezoneLabel:    orDefault(m.Timezone, "UTC"),
		Change:           change,
		ChangePercent:    pct,
		Source:           models.SourceLive,
	}
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
