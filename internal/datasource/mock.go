package datasource

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/marketpulse/internal/catalog"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// Maximum absolute mock move per country.
const (
	mockCeilingIN = 200.0
	mockCeilingUS = 50.0
)

// MockGenerator produces plausible synthetic quotes. It never fails.
type MockGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// MockOption customises a MockGenerator.
type MockOption func(*MockGenerator)

// WithRand sets the random source.
func WithRand(r *rand.Rand) MockOption {
	return func(g *MockGenerator) { g.rng = r }
}

// WithClock sets the clock used for AsOf.
func WithClock(now func() time.Time) MockOption {
	return func(g *MockGenerator) { g.now = now }
}

// NewMockGenerator creates a generator seeded from the wall clock unless
// WithRand is given.
func NewMockGenerator(opts ...MockOption) *MockGenerator {
	g := &MockGenerator{now: time.Now}
	for _, o := range opts {
		o(g)
	}
	if g.rng == nil {
		seed := uint64(time.Now().UnixNano())
		g.rng = rand.New(rand.NewPCG(seed, seed>>32|1))
	}
	return g
}

// Generate returns a synthetic quote for symbol anchored on its base price.
func (g *MockGenerator) Generate(symbol string, country models.Country) models.Quote {
	base := catalog.BasePrice(symbol, country)
	ceiling := mockCeilingUS
	tz := "EST"
	if country == models.CountryIN {
		ceiling = mockCeilingIN
		tz = "IST"
	}
	bound := math.Min(base*0.02, ceiling)

	g.mu.Lock()
	delta := g.uniform(bound)
	open := base + g.uniform(bound/2)
	highPad := g.rng.Float64() * bound / 2
	lowPad := g.rng.Float64() * bound / 2
	g.mu.Unlock()

	current := round2(base + delta)
	open = round2(open)
	high := round2(math.Max(base, math.Max(current, open)) + highPad)
	low := round2(math.Min(base, math.Min(current, open)) - lowPad)

	high52 := round2(base * 1.18)
	if ath, ok := catalog.KnownATH(symbol); ok {
		high52 = ath
	}

	change, pct := models.ComputeChange(current, base)
	return models.Quote{
		Symbol:           symbol,
		DisplayName:      catalog.DisplayName(symbol),
		Currency:         country.Currency(),
		CurrentPrice:     current,
		PreviousClose:    base,
		OpenPrice:        open,
		DayHigh:          high,
		DayLow:           low,
		FiftyTwoWeekHigh: high52,
		FiftyTwoWeekLow:  round2(base * 0.85),
		MarketStateRaw:   "REGULAR",
		AsOf:             g.now().Unix(),
		TimezoneLabel:    tz,
		Change:           change,
		ChangePercent:    pct,
		Source:           models.SourceMock,
	}
}

// uniform returns a value in [-bound, bound). Must be called with mu held.
func (g *MockGenerator) uniform(bound float64) float64 {
	return (g.rng.Float64()*2 - 1) * bound
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
