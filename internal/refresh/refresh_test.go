package refresh

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/seenimoa/marketpulse/internal/catalog"
	"github.com/seenimoa/marketpulse/internal/datasource"
	"github.com/seenimoa/marketpulse/internal/infra"
	"github.com/seenimoa/marketpulse/internal/logging"
	"github.com/seenimoa/marketpulse/pkg/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type switchable struct{ on atomic.Bool }

func (s *switchable) Online(context.Context) bool { return s.on.Load() }

type fixture struct {
	presenter *MockPresenter
	fetcher   *MockFetcher
	cache     *infra.QuoteCache
	clock     *fakeClock
	conn      *switchable
	o         *Orchestrator
}

func newFixture(t *testing.T, online bool, country models.Country, symbol string) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		presenter: NewMockPresenter(ctrl),
		fetcher:   NewMockFetcher(ctrl),
		cache:     infra.NewQuoteCache(),
		clock:     &fakeClock{now: time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)},
		conn:      &switchable{},
	}
	f.conn.on.Store(online)

	o, err := New(Options{
		Cache:        f.cache,
		Fetcher:      f.fetcher,
		Mock:         datasource.NewMockGenerator(datasource.WithRand(rand.New(rand.NewPCG(1, 2)))),
		Connectivity: f.conn,
		Presenter:    f.presenter,
		Clock:        f.clock.Now,
		Logger:       logging.Silent(),
		Country:      country,
		Symbol:       symbol,
	})
	require.NoError(t, err)
	f.o = o
	return f
}

func liveQuote(symbol string, price float64) models.Quote {
	change, pct := models.ComputeChange(price, price-1)
	return models.Quote{
		Symbol:           symbol,
		DisplayName:      catalog.DisplayName(symbol),
		Currency:         "USD",
		CurrentPrice:     price,
		PreviousClose:    price - 1,
		OpenPrice:        price - 1,
		DayHigh:          price,
		DayLow:           price - 1,
		FiftyTwoWeekHigh: price * 1.2,
		FiftyTwoWeekLow:  price * 0.8,
		MarketStateRaw:   "REGULAR",
		AsOf:             1771408800,
		TimezoneLabel:    "EST",
		Change:           change,
		ChangePercent:    pct,
		Source:           models.SourceLive,
	}
}

func TestNewDefaultsAndValidation(t *testing.T) {
	f := newFixture(t, true, "", "")
	st := f.o.Snapshot()
	assert.Equal(t, models.CountryIN, st.Country)
	assert.Equal(t, "^NSEI", st.Symbol)
	assert.Equal(t, models.StateIdle, st.State)
	_, ok := f.o.Current()
	assert.False(t, ok)

	base := Options{Cache: f.cache, Fetcher: f.fetcher, Mock: datasource.NewMockGenerator(), Presenter: f.presenter}

	opts := base
	opts.Country = "UK"
	_, err := New(opts)
	assert.ErrorIs(t, err, ErrUnknownCountry)

	opts = base
	opts.Country, opts.Symbol = models.CountryIN, "AAPL"
	_, err = New(opts)
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = New(Options{Cache: f.cache})
	assert.Error(t, err)
}

func TestOfflineWithoutCacheEmitsMock(t *testing.T) {
	f := newFixture(t, false, models.CountryUS, "AAPL")

	var shown models.QuoteView
	f.presenter.EXPECT().Display(gomock.Any()).Do(func(v models.QuoteView) { shown = v })

	res, err := f.o.Refresh(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, OriginMock, res.Origin)
	assert.Equal(t, "USD", res.Quote.Currency)
	assert.Equal(t, 237.23, res.Quote.FiftyTwoWeekHigh)
	assert.Equal(t, models.SourceMock, res.Quote.Source)
	assert.Equal(t, "$237.23", shown.AllTimeHigh)
	assert.Equal(t, "AAPL", shown.Symbol)
	assert.Equal(t, 0, f.cache.Len(), "synthetic quotes are never cached")
	assert.Equal(t, models.StateIdle, f.o.Snapshot().State)

	cur, ok := f.o.Current()
	require.True(t, ok)
	assert.Equal(t, shown, cur)
}

func TestLiveFetchCachesAndEmits(t *testing.T) {
	f := newFixture(t, true, models.CountryUS, "MSFT")
	q := liveQuote("MSFT", 421.5)

	gomock.InOrder(
		f.presenter.EXPECT().ShowLoading(),
		f.fetcher.EXPECT().Fetch(gomock.Any(), "MSFT").Return(q, nil),
		f.presenter.EXPECT().HideLoading(),
		f.presenter.EXPECT().Display(gomock.Any()),
	)

	res, err := f.o.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, OriginLive, res.Origin)
	assert.Equal(t, q, res.Quote)
	assert.Equal(t, uint64(1), res.Seq)

	e, ok := f.cache.Entry("MSFT")
	require.True(t, ok)
	assert.Equal(t, q, e.Quote)
	assert.Equal(t, f.clock.Now().UnixMilli(), e.FetchedAt)
	assert.Equal(t, OriginLive, f.o.Snapshot().LastOrigin)
}

func TestFreshCacheServedWithoutFetch(t *testing.T) {
	f := newFixture(t, true, models.CountryUS, "MSFT")
	q := liveQuote("MSFT", 421.5)
	f.cache.Put("MSFT", q, f.clock.Now())
	f.clock.Advance(29 * time.Second)

	f.presenter.EXPECT().Display(gomock.Any())

	res, err := f.o.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, OriginCache, res.Origin)
	assert.Equal(t, q, res.Quote, "cache round-trip must return the quote unchanged")
}

func TestStaleCacheIsBypassed(t *testing.T) {
	f := newFixture(t, true, models.CountryUS, "MSFT")
	f.cache.Put("MSFT", liveQuote("MSFT", 400), f.clock.Now())
	f.clock.Advance(30 * time.Second)

	fresh := liveQuote("MSFT", 425)
	f.presenter.EXPECT().ShowLoading()
	f.fetcher.EXPECT().Fetch(gomock.Any(), "MSFT").Return(fresh, nil)
	f.presenter.EXPECT().HideLoading()
	f.presenter.EXPECT().Display(gomock.Any())

	res, err := f.o.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, OriginLive, res.Origin)

	got, _ := f.cache.Get("MSFT")
	assert.Equal(t, 425.0, got.CurrentPrice)
}

func TestForceBypassesFreshCache(t *testing.T) {
	f := newFixture(t, true, models.CountryIN, "^NSEI")
	f.cache.Put("^NSEI", liveQuote("^NSEI", 24600), f.clock.Now())

	f.presenter.EXPECT().ShowLoading()
	f.fetcher.EXPECT().Fetch(gomock.Any(), "^NSEI").Return(liveQuote("^NSEI", 24650), nil)
	f.presenter.EXPECT().HideLoading()
	f.presenter.EXPECT().Display(gomock.Any())

	res, err := f.o.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 24650.0, res.Quote.CurrentPrice)
}

func TestOfflineServesAnyCachedEntry(t *testing.T) {
	f := newFixture(t, false, models.CountryIN, "^NSEI")
	q := liveQuote("^NSEI", 24600)
	f.cache.Put("^NSEI", q, f.clock.Now())
	f.clock.Advance(10 * time.Minute)

	f.presenter.EXPECT().Display(gomock.Any())

	res, err := f.o.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, OriginStaleCache, res.Origin)
	assert.Equal(t, q, res.Quote)
}

func TestFetchFailureFallsBackToMock(t *testing.T) {
	kinds := []datasource.ErrorKind{datasource.KindTimeout, datasource.KindHTTP, datasource.KindMalformed}
	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			f := newFixture(t, true, models.CountryIN, "TCS.NS")

			gomock.InOrder(
				f.presenter.EXPECT().ShowLoading(),
				f.fetcher.EXPECT().Fetch(gomock.Any(), "TCS.NS").
					Return(models.Quote{}, &datasource.NetworkError{Kind: kind, Symbol: "TCS.NS", Status: 503}),
				f.presenter.EXPECT().HideLoading(),
				f.presenter.EXPECT().Display(gomock.Any()),
			)

			res, err := f.o.Refresh(context.Background(), false)
			require.NoError(t, err, "fetch failures are never surfaced")
			assert.Equal(t, OriginMock, res.Origin)
			assert.Equal(t, "INR", res.Quote.Currency)
			assert.Equal(t, 4592.25, res.Quote.FiftyTwoWeekHigh)
			assert.Equal(t, 0, f.cache.Len())
			assert.Equal(t, models.StateIdle, f.o.Snapshot().State)
		})
	}
}

func TestNonForcedRefreshSkippedWhileInFlight(t *testing.T) {
	f := newFixture(t, true, models.CountryUS, "AAPL")

	started := make(chan struct{})
	release := make(chan struct{})
	f.presenter.EXPECT().ShowLoading()
	f.fetcher.EXPECT().Fetch(gomock.Any(), "AAPL").DoAndReturn(func(ctx context.Context, s string) (models.Quote, error) {
		close(started)
		<-release
		return liveQuote(s, 230), nil
	})
	f.presenter.EXPECT().HideLoading()
	f.presenter.EXPECT().Display(gomock.Any())

	done := make(chan Result)
	go func() {
		res, _ := f.o.Refresh(context.Background(), false)
		done <- res
	}()

	<-started
	assert.Equal(t, models.StateFetching, f.o.Snapshot().State)
	_, err := f.o.Refresh(context.Background(), false)
	assert.ErrorIs(t, err, ErrRefreshInFlight)

	close(release)
	res := <-done
	assert.Equal(t, OriginLive, res.Origin)
	assert.False(t, res.Superseded)
}

func TestForcedRefreshCancelsSupersededFetch(t *testing.T) {
	f := newFixture(t, true, models.CountryUS, "AAPL")

	started := make(chan struct{})
	f.presenter.EXPECT().ShowLoading().Times(1)
	first := f.fetcher.EXPECT().Fetch(gomock.Any(), "AAPL").DoAndReturn(func(ctx context.Context, s string) (models.Quote, error) {
		close(started)
		<-ctx.Done()
		return models.Quote{}, &datasource.NetworkError{Kind: datasource.KindHTTP, Symbol: s, Err: ctx.Err()}
	})
	f.fetcher.EXPECT().Fetch(gomock.Any(), "AAPL").Return(liveQuote("AAPL", 231), nil).After(first)
	f.presenter.EXPECT().HideLoading().Times(1)

	var shown []models.QuoteView
	var mu sync.Mutex
	f.presenter.EXPECT().Display(gomock.Any()).Do(func(v models.QuoteView) {
		mu.Lock()
		shown = append(shown, v)
		mu.Unlock()
	}).Times(1)

	done := make(chan Result)
	go func() {
		res, _ := f.o.Refresh(context.Background(), false)
		done <- res
	}()
	<-started

	res2, err := f.o.Refresh(context.Background(), true)
	require.NoError(t, err)
	res1 := <-done

	assert.True(t, res1.Superseded)
	assert.False(t, res2.Superseded)
	assert.Equal(t, uint64(2), res2.Seq)
	assert.Equal(t, 231.0, res2.Quote.CurrentPrice)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, shown, 1)
	assert.Equal(t, "$231.00", shown[0].Price)
}

func TestLateStaleResultIsDiscarded(t *testing.T) {
	f := newFixture(t, true, models.CountryUS, "AAPL")

	started := make(chan struct{})
	release := make(chan struct{})
	f.presenter.EXPECT().ShowLoading().Times(1)
	first := f.fetcher.EXPECT().Fetch(gomock.Any(), "AAPL").DoAndReturn(func(ctx context.Context, s string) (models.Quote, error) {
		close(started)
		<-release // ignores cancellation
		return liveQuote(s, 100), nil
	})
	f.fetcher.EXPECT().Fetch(gomock.Any(), "AAPL").Return(liveQuote("AAPL", 231), nil).After(first)
	f.presenter.EXPECT().HideLoading().Times(1)
	f.presenter.EXPECT().Display(gomock.Any()).Times(1)

	done := make(chan Result)
	go func() {
		res, _ := f.o.Refresh(context.Background(), false)
		done <- res
	}()
	<-started

	_, err := f.o.Refresh(context.Background(), true)
	require.NoError(t, err)

	close(release)
	stale := <-done
	assert.True(t, stale.Superseded)

	got, _ := f.cache.Get("AAPL")
	assert.Equal(t, 231.0, got.CurrentPrice, "a superseded invocation must not write the cache")
	cur, _ := f.o.Current()
	assert.Equal(t, "$231.00", cur.Price)
}

func TestCallerCancellationIsReturned(t *testing.T) {
	f := newFixture(t, true, models.CountryUS, "AAPL")
	ctx, cancel := context.WithCancel(context.Background())

	f.presenter.EXPECT().ShowLoading()
	f.fetcher.EXPECT().Fetch(gomock.Any(), "AAPL").DoAndReturn(func(fctx context.Context, s string) (models.Quote, error) {
		cancel()
		<-fctx.Done()
		return models.Quote{}, fctx.Err()
	})
	f.presenter.EXPECT().HideLoading()

	_, err := f.o.Refresh(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.StateIdle, f.o.Snapshot().State)
}

func TestSwitchIndiaToUSClearsIndianEntries(t *testing.T) {
	f := newFixture(t, true, models.CountryIN, "^NSEI")
	now := f.clock.Now()
	for _, s := range []string{"^NSEI", "^BSESN", "TCS.NS", "RELIANCE.NS"} {
		f.cache.Put(s, liveQuote(s, 100), now)
	}
	f.cache.Put("AAPL", liveQuote("AAPL", 230), now)

	f.presenter.EXPECT().ShowLoading()
	f.fetcher.EXPECT().Fetch(gomock.Any(), "^GSPC").DoAndReturn(func(ctx context.Context, s string) (models.Quote, error) {
		assert.Equal(t, 1, f.cache.Len(), "Indian entries must be cleared before the fetch")
		return liveQuote(s, 5600), nil
	})
	f.presenter.EXPECT().HideLoading()
	f.presenter.EXPECT().Display(gomock.Any())

	res, err := f.o.SelectCountry(context.Background(), models.CountryUS)
	require.NoError(t, err)
	assert.Equal(t, "^GSPC", res.Quote.Symbol)

	st := f.o.Snapshot()
	assert.Equal(t, models.CountryUS, st.Country)
	assert.Equal(t, "^GSPC", st.Symbol)

	for _, inst := range catalog.Instruments(models.CountryIN) {
		_, ok := f.cache.Get(inst.Symbol)
		assert.False(t, ok, "%s still cached", inst.Symbol)
	}
	_, ok := f.cache.Get("AAPL")
	assert.True(t, ok)
}

// A refresh still in flight when the selection changes must not write the
// old symbol back into the cache or display it, even when it completes
// between the switch and the follow-up fetch.
func TestSwitchSupersedesInFlightRefresh(t *testing.T) {
	tests := []struct {
		name      string
		logMsg    string
		newSymbol string
		selectFn  func(o *Orchestrator) (Result, error)
	}{
		{
			name:      "country",
			logMsg:    "country changed",
			newSymbol: "^GSPC",
			selectFn: func(o *Orchestrator) (Result, error) {
				return o.SelectCountry(context.Background(), models.CountryUS)
			},
		},
		{
			name:      "symbol",
			logMsg:    "symbol changed",
			newSymbol: "^BSESN",
			selectFn: func(o *Orchestrator) (Result, error) {
				return o.SelectSymbol(context.Background(), "^BSESN")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true, models.CountryIN, "^NSEI")

			started := make(chan struct{})
			release := make(chan struct{})
			done := make(chan Result, 1)

			// Let the stale fetch finish right after the selection changed
			// and before the new fetch starts.
			var once sync.Once
			var stale Result
			f.o.log = zerolog.New(io.Discard).Hook(zerolog.HookFunc(func(_ *zerolog.Event, _ zerolog.Level, msg string) {
				if msg != tt.logMsg {
					return
				}
				once.Do(func() {
					close(release)
					stale = <-done
				})
			}))

			f.presenter.EXPECT().ShowLoading().Times(1)
			first := f.fetcher.EXPECT().Fetch(gomock.Any(), "^NSEI").DoAndReturn(func(ctx context.Context, s string) (models.Quote, error) {
				close(started)
				<-release // ignores cancellation
				return liveQuote(s, 24650), nil
			})
			f.fetcher.EXPECT().Fetch(gomock.Any(), tt.newSymbol).Return(liveQuote(tt.newSymbol, 5600), nil).After(first)
			f.presenter.EXPECT().HideLoading().Times(1)

			var shown []string
			var mu sync.Mutex
			f.presenter.EXPECT().Display(gomock.Any()).Do(func(v models.QuoteView) {
				mu.Lock()
				shown = append(shown, v.Symbol)
				mu.Unlock()
			}).Times(1)

			go func() {
				res, _ := f.o.Refresh(context.Background(), false)
				done <- res
			}()
			<-started

			res, err := tt.selectFn(f.o)
			require.NoError(t, err)
			assert.Equal(t, tt.newSymbol, res.Quote.Symbol)
			assert.True(t, stale.Superseded)

			_, stillCached := f.cache.Get("^NSEI")
			assert.False(t, stillCached, "^NSEI written back after the switch")

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, []string{tt.newSymbol}, shown)
		})
	}
}

func TestSelectCountryKeepsIndexOfSameCountry(t *testing.T) {
	f := newFixture(t, false, models.CountryUS, "^DJI")
	f.presenter.EXPECT().Display(gomock.Any())

	_, err := f.o.SelectCountry(context.Background(), models.CountryUS)
	require.NoError(t, err)
	assert.Equal(t, "^DJI", f.o.Snapshot().Symbol)
}

func TestSelectCountryFromStockFallsBackToDefault(t *testing.T) {
	f := newFixture(t, false, models.CountryUS, "NVDA")
	f.presenter.EXPECT().Display(gomock.Any())

	res, err := f.o.SelectCountry(context.Background(), models.CountryIN)
	require.NoError(t, err)
	assert.Equal(t, "^NSEI", f.o.Snapshot().Symbol)
	assert.Equal(t, "INR", res.Quote.Currency)
}

func TestSelectCountryUnknown(t *testing.T) {
	f := newFixture(t, true, models.CountryIN, "^NSEI")
	f.presenter.EXPECT().ShowError(gomock.Any())

	_, err := f.o.SelectCountry(context.Background(), "JP")
	assert.ErrorIs(t, err, ErrUnknownCountry)
	assert.Equal(t, models.CountryIN, f.o.Snapshot().Country)
}

func TestSelectSymbol(t *testing.T) {
	f := newFixture(t, true, models.CountryIN, "^NSEI")
	now := f.clock.Now()
	f.cache.Put("^NSEI", liveQuote("^NSEI", 24650), now)
	f.cache.Put("INFY.NS", liveQuote("INFY.NS", 1850), now)

	f.presenter.EXPECT().ShowLoading()
	f.fetcher.EXPECT().Fetch(gomock.Any(), "INFY.NS").Return(liveQuote("INFY.NS", 1860), nil)
	f.presenter.EXPECT().HideLoading()
	f.presenter.EXPECT().Display(gomock.Any())

	res, err := f.o.SelectSymbol(context.Background(), "INFY.NS")
	require.NoError(t, err)
	assert.Equal(t, OriginLive, res.Origin, "a switch always forces a fetch")
	assert.Equal(t, "INFY.NS", f.o.Snapshot().Symbol)

	_, ok := f.cache.Get("^NSEI")
	assert.False(t, ok, "previous symbol must be evicted")
}

func TestSelectSymbolRejectsOtherCountry(t *testing.T) {
	f := newFixture(t, true, models.CountryIN, "^NSEI")
	f.presenter.EXPECT().ShowError("AAPL is not available for IN")

	_, err := f.o.SelectSymbol(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Equal(t, "^NSEI", f.o.Snapshot().Symbol)
}

func TestSelectCountryAndSymbol(t *testing.T) {
	f := newFixture(t, true, models.CountryIN, "^NSEI")
	f.cache.Put("TCS.NS", liveQuote("TCS.NS", 4100), f.clock.Now())

	f.presenter.EXPECT().ShowLoading()
	f.fetcher.EXPECT().Fetch(gomock.Any(), "AAPL").Return(liveQuote("AAPL", 230), nil)
	f.presenter.EXPECT().HideLoading()
	f.presenter.EXPECT().Display(gomock.Any())

	_, err := f.o.Select(context.Background(), models.CountryUS, "AAPL")
	require.NoError(t, err)

	st := f.o.Snapshot()
	assert.Equal(t, models.CountryUS, st.Country)
	assert.Equal(t, "AAPL", st.Symbol)
	_, ok := f.cache.Get("TCS.NS")
	assert.False(t, ok)
}

func TestSelectRejectsMismatchedPair(t *testing.T) {
	f := newFixture(t, true, models.CountryIN, "^NSEI")
	f.presenter.EXPECT().ShowError(gomock.Any())

	_, err := f.o.Select(context.Background(), models.CountryUS, "TCS.NS")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Equal(t, models.CountryIN, f.o.Snapshot().Country, "nothing changes on a rejected pair")
}

func newRunOrchestrator(t *testing.T, fetcher Fetcher, conn infra.Connectivity, presenter Presenter) *Orchestrator {
	t.Helper()
	o, err := New(Options{
		Cache:           infra.NewQuoteCache(),
		Fetcher:         fetcher,
		Mock:            datasource.NewMockGenerator(),
		Connectivity:    conn,
		Presenter:       presenter,
		Logger:          logging.Silent(),
		FreshnessWindow: time.Millisecond,
		Interval:        15 * time.Millisecond,
		ProbeInterval:   5 * time.Millisecond,
		Country:         models.CountryUS,
		Symbol:          "AAPL",
	})
	require.NoError(t, err)
	return o
}

func TestRunChainsCyclesWithoutOverlap(t *testing.T) {
	ctrl := gomock.NewController(t)
	presenter := NewMockPresenter(ctrl)
	presenter.EXPECT().ShowLoading().AnyTimes()
	presenter.EXPECT().HideLoading().AnyTimes()
	presenter.EXPECT().Display(gomock.Any()).AnyTimes()

	var calls, inflight, maxInflight atomic.Int32
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), "AAPL").DoAndReturn(func(ctx context.Context, s string) (models.Quote, error) {
		n := inflight.Add(1)
		if n > maxInflight.Load() {
			maxInflight.Store(n)
		}
		defer inflight.Add(-1)
		calls.Add(1)
		time.Sleep(20 * time.Millisecond) // longer than the interval
		return liveQuote(s, 230), nil
	}).AnyTimes()

	o := newRunOrchestrator(t, fetcher, infra.StaticConnectivity(true), presenter)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, o.Run(ctx))

	assert.GreaterOrEqual(t, calls.Load(), int32(2))
	assert.Equal(t, int32(1), maxInflight.Load())
	_, ok := o.Current()
	assert.True(t, ok)
}

func TestRunSkipsOfflineTicksAndRefreshesWhenBackOnline(t *testing.T) {
	ctrl := gomock.NewController(t)
	presenter := NewMockPresenter(ctrl)
	presenter.EXPECT().ShowLoading().AnyTimes()
	presenter.EXPECT().HideLoading().AnyTimes()

	var displays atomic.Int32
	presenter.EXPECT().Display(gomock.Any()).Do(func(models.QuoteView) { displays.Add(1) }).AnyTimes()

	fetched := make(chan struct{}, 16)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), "AAPL").DoAndReturn(func(ctx context.Context, s string) (models.Quote, error) {
		fetched <- struct{}{}
		return liveQuote(s, 230), nil
	}).AnyTimes()

	conn := &switchable{}
	o := newRunOrchestrator(t, fetcher, conn, presenter)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- o.Run(ctx) }()

	// The first cycle runs even offline and shows demo data.
	require.Eventually(t, func() bool { return displays.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), displays.Load(), "offline ticks are skipped")
	assert.Equal(t, OriginMock, o.Snapshot().LastOrigin)

	conn.on.Store(true)
	select {
	case <-fetched:
	case <-time.After(time.Second):
		t.Fatal("no fetch after coming back online")
	}

	cancel()
	assert.NoError(t, <-errc)
}

func TestPresentersFanOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	a, b := NewMockPresenter(ctrl), NewMockPresenter(ctrl)
	v := models.QuoteView{Symbol: "AAPL"}

	for _, p := range []*MockPresenter{a, b} {
		p.EXPECT().ShowLoading()
		p.EXPECT().HideLoading()
		p.EXPECT().ShowError("boom")
		p.EXPECT().Display(v)
	}

	ps := Presenters{a, b}
	ps.ShowLoading()
	ps.HideLoading()
	ps.ShowError("boom")
	ps.Display(v)
}
