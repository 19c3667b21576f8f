// Package api provides the HTTP server for marketpulse.
//
// It exposes the active quote, the instrument catalog, selection changes,
// forced refreshes, market status and a WebSocket stream that mirrors every
// notification the refresh orchestrator emits.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/marketpulse/internal/catalog"
	"github.com/seenimoa/marketpulse/internal/config"
	"github.com/seenimoa/marketpulse/internal/datasource"
	"github.com/seenimoa/marketpulse/internal/infra"
	"github.com/seenimoa/marketpulse/internal/refresh"
	"github.com/seenimoa/marketpulse/pkg/models"
	"github.com/seenimoa/marketpulse/pkg/utils"
	"github.com/seenimoa/marketpulse/web"
)

// Refresher is the part of the orchestrator the server drives.
type Refresher interface {
	Refresh(ctx context.Context, force bool) (refresh.Result, error)
	Select(ctx context.Context, country models.Country, symbol string) (refresh.Result, error)
	Snapshot() refresh.AppState
	Current() (models.QuoteView, bool)
}

// Deps are the collaborators of a Server. Refresher, Fetcher, Mock and Hub
// are required.
type Deps struct {
	Refresher    Refresher
	Fetcher      refresh.Fetcher
	Mock         refresh.Generator
	Connectivity infra.Connectivity
	Hub          *WSHub
	Logger       zerolog.Logger
	Version      string
	Now          func() time.Time
}

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	orch    Refresher
	fetcher refresh.Fetcher
	mock    refresh.Generator
	conn    infra.Connectivity
	wsHub   *WSHub
	log     zerolog.Logger
	version string
	now     func() time.Time
	lookups singleflight.Group
	serveUI bool // when true, serve the embedded dashboard at /
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, d Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("api: config is required")
	}
	if d.Refresher == nil || d.Fetcher == nil || d.Mock == nil || d.Hub == nil {
		return nil, errors.New("api: refresher, fetcher, mock and hub are required")
	}

	srv := &Server{
		cfg:     cfg,
		orch:    d.Refresher,
		fetcher: d.Fetcher,
		mock:    d.Mock,
		conn:    d.Connectivity,
		wsHub:   d.Hub,
		log:     d.Logger,
		version: d.Version,
		now:     d.Now,
		serveUI: cfg.API.ServeUI,
	}
	if srv.conn == nil {
		srv.conn = infra.StaticConnectivity(true)
	}
	if srv.now == nil {
		srv.now = time.Now
	}
	if srv.version == "" {
		srv.version = "dev"
	}

	srv.router = srv.buildRouter()
	return srv, nil
}

// SetServeUI controls whether the embedded dashboard is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves HTTP on addr until ctx is cancelled, then shuts down
// gracefully. The WebSocket hub is run separately by the caller.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// The WebSocket route must not sit behind the timeout middleware.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout()))

			r.Get("/catalog", s.handleCatalog)
			r.Get("/quote", s.handleQuote)
			r.Post("/refresh", s.handleRefresh)
			r.Get("/selection", s.handleGetSelection)
			r.Put("/selection", s.handleSelection)
			r.Get("/market-status/{symbol}", s.handleMarketStatus)
			r.Get("/lookup/{symbol}", s.handleLookup)

			r.Get("/config", s.handleGetConfig)
			r.Get("/config/keys", s.handleGetConfigKeys)
		})
	})

	if s.serveUI {
		s.mountSPA(r, web.DistFS())
	}

	return r
}

// fetchTimeout bounds one upstream fetch, fallback hosts included.
func (s *Server) fetchTimeout() time.Duration {
	if t := s.cfg.Upstream.Timeout(); t > 0 {
		return t
	}
	return datasource.DefaultFetchTimeout
}

// requestTimeout leaves room for one upstream fetch plus rendering.
func (s *Server) requestTimeout() time.Duration {
	return s.fetchTimeout() + 5*time.Second
}

// mountSPA serves the embedded dashboard. Unknown paths fall back to
// index.html.
func (s *Server) mountSPA(r chi.Router, distFS fs.FS) {
	fileServer := http.FileServerFS(distFS)

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		rPath := strings.TrimPrefix(r.URL.Path, "/")
		if rPath == "" || rPath == "index.html" {
			serveIndexHTML(w, r, distFS)
			return
		}

		f, err := distFS.Open(rPath)
		if err != nil {
			serveIndexHTML(w, r, distFS)
			return
		}
		f.Close()

		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}

func serveIndexHTML(w http.ResponseWriter, _ *http.Request, distFS fs.FS) {
	data, err := fs.ReadFile(distFS, "index.html")
	if err != nil {
		http.Error(w, "web UI not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	TimeIST   string           `json:"time_ist"`
	TimeET    string           `json:"time_et"`
	Online    bool             `json:"online"`
	Selection refresh.AppState `json:"selection"`
	WSClients int              `json:"ws_clients"`
}

// CatalogCountry is one country with its instruments in display order.
type CatalogCountry struct {
	models.CountryInfo
	Currency      string              `json:"currency"`
	DefaultSymbol string              `json:"default_symbol"`
	Indices       []models.Instrument `json:"indices"`
	Stocks        []models.Instrument `json:"stocks"`
}

// CatalogResponse lists every selectable instrument.
type CatalogResponse struct {
	DefaultCountry models.Country   `json:"default_country"`
	Countries      []CatalogCountry `json:"countries"`
}

// QuoteResponse carries a rendered quote and the selection that produced it.
type QuoteResponse struct {
	Quote  models.QuoteView `json:"quote"`
	Origin refresh.Origin   `json:"origin,omitempty"`
	State  refresh.AppState `json:"state"`
}

// SelectionRequest changes the active country, symbol or both.
type SelectionRequest struct {
	Country string `json:"country,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
}

// MarketStatusResponse is the session of one symbol at request time.
type MarketStatusResponse struct {
	Symbol   string              `json:"symbol"`
	Status   models.MarketStatus `json:"status"`
	CSSClass string              `json:"css_class"`
	Timezone string              `json:"timezone"`
	Indian   bool                `json:"indian"`
	AsOf     string              `json:"as_of"`
}

// LookupResponse is an ad-hoc quote outside the active selection.
type LookupResponse struct {
	Quote  models.QuoteView `json:"quote"`
	Origin refresh.Origin   `json:"origin"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: HealthResponse{
			Status:    "ok",
			Version:   s.version,
			TimeIST:   utils.FormatDateTimeIST(now),
			TimeET:    utils.FormatDateTimeET(now),
			Online:    s.conn.Online(r.Context()),
			Selection: s.orch.Snapshot(),
			WSClients: s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	filter := models.Country(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country"))))
	if filter != "" && !filter.Valid() {
		writeError(w, http.StatusBadRequest, "unknown country: "+string(filter))
		return
	}

	resp := CatalogResponse{DefaultCountry: catalog.DefaultCountry}
	for _, ci := range catalog.Countries() {
		if filter != "" && ci.Code != filter {
			continue
		}
		resp.Countries = append(resp.Countries, CatalogCountry{
			CountryInfo:   ci,
			Currency:      ci.Code.Currency(),
			DefaultSymbol: catalog.DefaultSymbolFor(ci.Code),
			Indices:       catalog.Indices(ci.Code),
			Stocks:        catalog.Stocks(ci.Code),
		})
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	view, ok := s.orch.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no quote has been displayed yet")
		return
	}
	st := s.orch.Snapshot()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    QuoteResponse{Quote: view, Origin: st.LastOrigin, State: st},
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.orch.Refresh(r.Context(), true)
	s.writeResult(w, res, err)
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.orch.Snapshot()})
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	country := models.Country(strings.ToUpper(strings.TrimSpace(req.Country)))
	symbol := strings.TrimSpace(req.Symbol)
	if symbol != "" {
		symbol = utils.NormalizeSymbol(symbol)
	}
	if country == "" && symbol == "" {
		writeError(w, http.StatusBadRequest, "country or symbol is required")
		return
	}

	res, err := s.orch.Select(r.Context(), country, symbol)
	s.writeResult(w, res, err)
}

// writeResult renders the outcome of a refresh-producing call.
func (s *Server) writeResult(w http.ResponseWriter, res refresh.Result, err error) {
	switch {
	case errors.Is(err, refresh.ErrUnknownCountry), errors.Is(err, refresh.ErrUnknownSymbol):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, refresh.ErrRefreshInFlight):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "refresh aborted: "+err.Error())
		return
	}

	st := s.orch.Snapshot()
	if res.Superseded {
		// A newer refresh owns the display; report whatever it shows.
		view, ok := s.orch.Current()
		if !ok {
			writeError(w, http.StatusConflict, "superseded by a newer refresh")
			return
		}
		writeJSON(w, http.StatusOK, APIResponse{
			Success: true,
			Data:    QuoteResponse{Quote: view, Origin: st.LastOrigin, State: st},
		})
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    QuoteResponse{Quote: res.View, Origin: res.Origin, State: st},
	})
}

func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	now := s.now()
	status := utils.MarketStatusAt(symbol, now)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: MarketStatusResponse{
			Symbol:   symbol,
			Status:   status,
			CSSClass: status.CSSClass(),
			Timezone: utils.TimezoneLabel(symbol),
			Indian:   utils.IsIndianSymbol(symbol),
			AsOf:     utils.FormatDateTimeIST(now),
		},
	})
}

// handleLookup quotes any catalog symbol without touching the selection or
// the quote cache. Concurrent lookups of one symbol share a single fetch,
// which outlives the request that started it.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	inst, ok := catalog.Lookup(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown symbol: "+symbol)
		return
	}

	v, _, _ := s.lookups.Do(symbol, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.fetchTimeout())
		defer cancel()
		return s.lookup(ctx, inst), nil
	})
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: v})
}

func (s *Server) lookup(ctx context.Context, inst models.Instrument) LookupResponse {
	if s.conn.Online(ctx) {
		q, err := s.fetcher.Fetch(ctx, inst.Symbol)
		if err == nil {
			return LookupResponse{Quote: utils.NewQuoteView(q, s.now()), Origin: refresh.OriginLive}
		}
		s.log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("lookup fetch failed, using demo data")
	}
	q := s.mock.Generate(inst.Symbol, inst.Country)
	return LookupResponse{Quote: utils.NewQuoteView(q, s.now()), Origin: refresh.OriginMock}
}

// symbolParam reads and normalizes the {symbol} path parameter.
func symbolParam(r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "symbol")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	return utils.NormalizeSymbol(raw), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
