// Package refresh owns the active selection and decides, for every refresh,
// whether to serve the cached quote, fetch a live one or synthesise one.
//
// All triggers (timer ticks, manual refreshes, symbol and country switches)
// go through Orchestrator.Refresh. Each invocation takes a sequence number;
// only the newest invocation may write the cache, change the state or reach
// the Presenter. A forced refresh cancels the invocation it supersedes.
package refresh

//go:generate mockgen -source=refresh.go -destination=mock_refresh_test.go -package=refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/marketpulse/internal/catalog"
	"github.com/seenimoa/marketpulse/internal/datasource"
	"github.com/seenimoa/marketpulse/internal/infra"
	"github.com/seenimoa/marketpulse/pkg/models"
	"github.com/seenimoa/marketpulse/pkg/utils"
)

var (
	// ErrRefreshInFlight is returned by a non-forced Refresh while another
	// invocation is running. Nothing is emitted.
	ErrRefreshInFlight = errors.New("refresh already in flight")

	// ErrUnknownSymbol means the symbol is not in the catalog for the active country.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrUnknownCountry means the country code is not supported.
	ErrUnknownCountry = errors.New("unknown country")
)

// Presenter receives every user-visible notification.
type Presenter interface {
	ShowLoading()
	HideLoading()
	ShowError(msg string)
	Display(view models.QuoteView)
}

// Fetcher produces live quotes.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (models.Quote, error)
}

// Generator produces synthetic quotes and never fails.
type Generator interface {
	Generate(symbol string, country models.Country) models.Quote
}

// Clock returns the current time.
type Clock func() time.Time

// Origin says which branch produced an emitted quote.
type Origin string

const (
	OriginCache      Origin = "cache"
	OriginStaleCache Origin = "stale-cache" // offline, any age
	OriginLive       Origin = "live"
	OriginMock       Origin = "mock"
)

// Defaults applied by New for zero Options fields.
const (
	DefaultInterval      = 30 * time.Second
	DefaultProbeInterval = 5 * time.Second
)

// Options wires an Orchestrator. Cache, Fetcher, Mock and Presenter are required.
type Options struct {
	Cache        *infra.QuoteCache
	Fetcher      Fetcher
	Mock         Generator
	Connectivity infra.Connectivity
	Presenter    Presenter
	Clock        Clock
	Logger       zerolog.Logger

	FetchTimeout    time.Duration
	FreshnessWindow time.Duration
	Interval        time.Duration
	ProbeInterval   time.Duration

	Country models.Country
	Symbol  string
}

// AppState is the orchestrator's mutable state.
type AppState struct {
	Country    models.Country      `json:"country"`
	Symbol     string              `json:"symbol"`
	State      models.RefreshState `json:"state"`
	Seq        uint64              `json:"seq"`
	LastOrigin Origin              `json:"last_origin,omitempty"`
	LastEmit   time.Time           `json:"last_emit,omitzero"`
}

// Result describes one Refresh invocation.
type Result struct {
	Quote      models.Quote
	View       models.QuoteView
	Origin     Origin
	Seq        uint64
	Superseded bool // a newer invocation started; nothing was emitted
}

// Orchestrator runs refreshes for the active selection.
type Orchestrator struct {
	cache     *infra.QuoteCache
	fetcher   Fetcher
	mock      Generator
	conn      infra.Connectivity
	presenter Presenter
	now       Clock
	log       zerolog.Logger

	fetchTimeout  time.Duration
	freshness     time.Duration
	interval      time.Duration
	probeInterval time.Duration

	mu       sync.Mutex
	state    AppState
	cancel   context.CancelFunc // of the newest invocation
	current  models.QuoteView
	hasQuote bool

	// emitMu orders Presenter calls so a stale invocation can never
	// display after a newer one.
	emitMu  sync.Mutex
	loading bool
}

// New creates an Orchestrator with the given collaborators.
func New(opts Options) (*Orchestrator, error) {
	if opts.Cache == nil || opts.Fetcher == nil || opts.Mock == nil || opts.Presenter == nil {
		return nil, errors.New("refresh: cache, fetcher, mock and presenter are required")
	}
	o := &Orchestrator{
		cache:         opts.Cache,
		fetcher:       opts.Fetcher,
		mock:          opts.Mock,
		conn:          opts.Connectivity,
		presenter:     opts.Presenter,
		now:           opts.Clock,
		log:           opts.Logger,
		fetchTimeout:  opts.FetchTimeout,
		freshness:     opts.FreshnessWindow,
		interval:      opts.Interval,
		probeInterval: opts.ProbeInterval,
	}
	if o.conn == nil {
		o.conn = infra.StaticConnectivity(true)
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.freshness <= 0 {
		o.freshness = infra.DefaultFreshness
	}
	if o.interval <= 0 {
		o.interval = DefaultInterval
	}
	if o.probeInterval <= 0 {
		o.probeInterval = DefaultProbeInterval
	}

	country, symbol := opts.Country, opts.Symbol
	if country == "" {
		country = catalog.DefaultCountry
	}
	if !country.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCountry, country)
	}
	if symbol == "" {
		symbol = catalog.DefaultSymbolFor(country)
	}
	if !catalog.Contains(country, symbol) {
		return nil, fmt.Errorf("%w: %q for %s", ErrUnknownSymbol, symbol, country)
	}
	o.state = AppState{Country: country, Symbol: symbol, State: models.StateIdle}
	return o, nil
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() AppState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Current returns the last emitted view, if any.
func (o *Orchestrator) Current() (models.QuoteView, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current, o.hasQuote
}

// Refresh runs one invocation for the active selection.
//
// A fresh cache entry is served unless force is set. Offline, any cached
// entry is served, otherwise a synthetic quote. Online without a usable
// entry the fetcher is called; any fetch failure falls back to a synthetic
// quote and is never returned. The only errors are ErrRefreshInFlight and
// cancellation of ctx by the caller.
func (o *Orchestrator) Refresh(ctx context.Context, force bool) (Result, error) {
	o.mu.Lock()
	if !force && o.state.State != models.StateIdle {
		o.mu.Unlock()
		return Result{}, ErrRefreshInFlight
	}
	o.supersedeLocked()
	seq := o.state.Seq
	o.state.State = models.StateFetching
	symbol, country := o.state.Symbol, o.state.Country
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()
	defer cancel()

	log := o.log.With().Str("symbol", symbol).Uint64("seq", seq).Logger()

	online := o.conn.Online(ctx)
	entry, cached := o.cache.Entry(symbol)

	switch {
	case cached && !online:
		log.Debug().Dur("age", entry.Age(o.now())).Msg("offline, serving cached quote")
		return o.emit(seq, symbol, entry.Quote, OriginStaleCache)
	case cached && !force && entry.IsFresh(o.now(), o.freshness):
		log.Debug().Msg("serving fresh cached quote")
		return o.emit(seq, symbol, entry.Quote, OriginCache)
	case !online:
		log.Info().Msg("offline with no cached quote, using demo data")
		o.setState(seq, models.StateMockFallback)
		return o.emit(seq, symbol, o.mock.Generate(symbol, country), OriginMock)
	}

	o.showLoading(seq)
	fetchCtx := ctx
	if o.fetchTimeout > 0 {
		var cancelFetch context.CancelFunc
		fetchCtx, cancelFetch = context.WithTimeout(ctx, o.fetchTimeout)
		defer cancelFetch()
	}
	q, err := o.fetcher.Fetch(fetchCtx, symbol)

	if err != nil {
		if ctx.Err() != nil {
			return o.abandon(seq, ctx.Err())
		}
		log.Warn().Err(err).Str("kind", datasource.KindOf(err).String()).Msg("live fetch failed, using demo data")
		o.setState(seq, models.StateMockFallback)
		return o.emit(seq, symbol, o.mock.Generate(symbol, country), OriginMock)
	}
	return o.emit(seq, symbol, q, OriginLive)
}

// emit publishes q if seq is still the newest invocation.
func (o *Orchestrator) emit(seq uint64, symbol string, q models.Quote, origin Origin) (Result, error) {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	now := o.now()
	o.mu.Lock()
	if seq != o.state.Seq {
		o.mu.Unlock()
		o.log.Debug().Str("symbol", symbol).Uint64("seq", seq).Msg("discarding superseded result")
		return Result{Quote: q, Origin: origin, Seq: seq, Superseded: true}, nil
	}
	if origin == OriginLive {
		o.cache.Put(symbol, q, now)
	}
	view := utils.NewQuoteView(q, now)
	o.current, o.hasQuote = view, true
	o.state.State = models.StateIdle
	o.state.LastOrigin = origin
	o.state.LastEmit = now
	o.cancel = nil
	o.mu.Unlock()

	if o.loading {
		o.loading = false
		o.presenter.HideLoading()
	}
	o.presenter.Display(view)
	return Result{Quote: q, View: view, Origin: origin, Seq: seq}, nil
}

// abandon ends an invocation whose context was cancelled.
func (o *Orchestrator) abandon(seq uint64, err error) (Result, error) {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	newest := seq == o.state.Seq
	if newest {
		o.state.State = models.StateIdle
		o.cancel = nil
	}
	o.mu.Unlock()

	if !newest {
		return Result{Seq: seq, Superseded: true}, nil
	}
	if o.loading {
		o.loading = false
		o.presenter.HideLoading()
	}
	return Result{Seq: seq}, err
}

// supersedeLocked cancels the newest invocation and takes a new sequence
// number, so any result still in flight is discarded by emit. o.mu is held.
func (o *Orchestrator) supersedeLocked() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.state.Seq++
}

func (o *Orchestrator) setState(seq uint64, s models.RefreshState) {
	o.mu.Lock()
	if seq == o.state.Seq {
		o.state.State = s
	}
	o.mu.Unlock()
}

func (o *Orchestrator) showLoading(seq uint64) {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	newest := seq == o.state.Seq
	o.mu.Unlock()
	if newest && !o.loading {
		o.loading = true
		o.presenter.ShowLoading()
	}
}

// SelectSymbol switches the active symbol within the active country and
// force-refreshes it. The previous symbol's cache entry is dropped first.
func (o *Orchestrator) SelectSymbol(ctx context.Context, symbol string) (Result, error) {
	o.mu.Lock()
	country := o.state.Country
	if !catalog.Contains(country, symbol) {
		o.mu.Unlock()
		o.presenter.ShowError(fmt.Sprintf("%s is not available for %s", symbol, country))
		return Result{}, fmt.Errorf("%w: %q for %s", ErrUnknownSymbol, symbol, country)
	}
	old := o.state.Symbol
	o.state.Symbol = symbol
	o.supersedeLocked()
	o.mu.Unlock()

	o.cache.Evict(old)
	o.log.Info().Str("from", old).Str("to", symbol).Msg("symbol changed")
	return o.Refresh(ctx, true)
}

// SelectCountry switches the active country and force-refreshes. Cached
// quotes of the old country's instruments are dropped first. The symbol is
// kept if it is one of the new country's indices, otherwise the new
// country's default index is selected.
func (o *Orchestrator) SelectCountry(ctx context.Context, country models.Country) (Result, error) {
	if !country.Valid() {
		o.presenter.ShowError(fmt.Sprintf("%s is not a supported country", country))
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCountry, country)
	}

	o.switchCountry(country)
	return o.Refresh(ctx, true)
}

// Select applies an optional country switch followed by an optional symbol
// switch. The symbol is validated against the resulting country.
func (o *Orchestrator) Select(ctx context.Context, country models.Country, symbol string) (Result, error) {
	switch {
	case country == "" && symbol == "":
		return o.Refresh(ctx, true)
	case symbol == "":
		return o.SelectCountry(ctx, country)
	case country == "":
		return o.SelectSymbol(ctx, symbol)
	case !country.Valid():
		return o.SelectCountry(ctx, country)
	case !catalog.Contains(country, symbol):
		o.presenter.ShowError(fmt.Sprintf("%s is not available for %s", symbol, country))
		return Result{}, fmt.Errorf("%w: %q for %s", ErrUnknownSymbol, symbol, country)
	}
	if o.Snapshot().Country != country {
		o.switchCountry(country)
	}
	return o.SelectSymbol(ctx, symbol)
}

// switchCountry updates the selection for country and drops the old
// country's cached quotes.
func (o *Orchestrator) switchCountry(country models.Country) {
	o.mu.Lock()
	old, oldSymbol := o.state.Country, o.state.Symbol
	symbol := oldSymbol
	if !catalog.IsIndexOf(country, symbol) {
		symbol = catalog.DefaultSymbolFor(country)
	}
	o.state.Country, o.state.Symbol = country, symbol
	o.supersedeLocked()
	o.mu.Unlock()

	evict := []string{oldSymbol}
	for _, inst := range catalog.Instruments(old) {
		evict = append(evict, inst.Symbol)
	}
	o.cache.EvictMany(evict)

	o.log.Info().Str("from", string(old)).Str("to", string(country)).Str("symbol", symbol).Msg("country changed")
}

// Run is the scheduler. It refreshes immediately, then waits Interval after
// each completed cycle before the next one, so cycles never overlap. Ticks
// are skipped while offline; coming back online triggers an immediate
// refresh. Run returns nil when ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	online := o.conn.Online(ctx)
	o.tick(ctx)

	timer := time.NewTimer(o.interval)
	defer timer.Stop()
	probe := time.NewTicker(o.probeInterval)
	defer probe.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if o.conn.Online(ctx) {
				o.tick(ctx)
			} else {
				o.log.Debug().Msg("offline, skipping scheduled refresh")
			}
			timer.Reset(o.interval)
		case <-probe.C:
			now := o.conn.Online(ctx)
			if now && !online {
				o.log.Info().Msg("back online, refreshing")
				o.tick(ctx)
			}
			online = now
		}
	}
}

func (o *Orchestrator) tick(ctx context.Context) {
	res, err := o.Refresh(ctx, false)
	switch {
	case errors.Is(err, ErrRefreshInFlight):
		o.log.Debug().Msg("refresh in flight, tick skipped")
	case err != nil:
		if ctx.Err() == nil {
			o.log.Error().Err(err).Msg("scheduled refresh failed")
		}
	case !res.Superseded:
		o.log.Debug().Str("origin", string(res.Origin)).Str("symbol", res.Quote.Symbol).Msg("scheduled refresh")
	}
}
