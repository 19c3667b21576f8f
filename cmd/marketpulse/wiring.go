package main

import (
	"fmt"
	"strings"

	"github.com/seenimoa/marketpulse/internal/catalog"
	"github.com/seenimoa/marketpulse/internal/config"
	"github.com/seenimoa/marketpulse/internal/datasource"
	"github.com/seenimoa/marketpulse/internal/infra"
	"github.com/seenimoa/marketpulse/internal/logging"
	"github.com/seenimoa/marketpulse/internal/refresh"
	"github.com/seenimoa/marketpulse/pkg/models"
	"github.com/seenimoa/marketpulse/pkg/utils"
)

// components are the collaborators shared by serve, quote and watch.
type components struct {
	cache   *infra.QuoteCache
	fetcher datasource.QuoteSource
	mock    *datasource.MockGenerator
	conn    infra.Connectivity
}

func newComponents(c *config.Config, offline bool) components {
	conn := newConnectivity(c)
	if offline {
		conn = infra.StaticConnectivity(false)
	}
	return components{
		cache:   infra.NewQuoteCache(),
		fetcher: newFetcher(c),
		mock:    datasource.NewMockGenerator(),
		conn:    conn,
	}
}

// newFetcher chains one chart source per configured URL, primary first.
func newFetcher(c *config.Config) *datasource.Aggregator {
	log := logging.Component(logger, "yfinance")
	urls := append([]string{c.Upstream.BaseURL}, c.Upstream.FallbackURLs...)

	sources := make([]datasource.QuoteSource, 0, len(urls))
	for _, u := range urls {
		sources = append(sources, datasource.NewYFinance(datasource.YFinanceConfig{
			BaseURL:      u,
			Timeout:      c.Upstream.Timeout(),
			RatePerSec:   c.Upstream.RatePerSec,
			Burst:        c.Upstream.Burst,
			UserAgent:    c.Upstream.UserAgent,
			APIKey:       c.Upstream.APIKey,
			APIKeyHeader: c.Upstream.APIKeyHeader,
			Logger:       log,
		}))
	}
	return datasource.NewAggregator(log, sources...)
}

// newConnectivity maps the configured mode to a Connectivity.
func newConnectivity(c *config.Config) infra.Connectivity {
	switch c.Connectivity.Mode {
	case config.ModeOffline:
		return infra.StaticConnectivity(false)
	case config.ModeProbe:
		return infra.DialProbe{Addr: c.Connectivity.ProbeAddr, Timeout: c.Connectivity.ProbeTimeout()}
	default:
		return infra.StaticConnectivity(true)
	}
}

func (cs components) orchestrator(c *config.Config, p refresh.Presenter, country models.Country, symbol string) (*refresh.Orchestrator, error) {
	return refresh.New(refresh.Options{
		Cache:           cs.cache,
		Fetcher:         cs.fetcher,
		Mock:            cs.mock,
		Connectivity:    cs.conn,
		Presenter:       p,
		Logger:          logging.Component(logger, "refresh"),
		FetchTimeout:    c.Upstream.Timeout(),
		FreshnessWindow: c.Cache.Freshness(),
		Interval:        c.Refresh.Interval(),
		Country:         country,
		Symbol:          symbol,
	})
}

// resolveSelection turns CLI input into a catalog selection. The country is
// inferred from the symbol when not given.
func resolveSelection(c *config.Config, countryFlag, symbolArg string) (models.Country, string, error) {
	country := models.Country(c.Selection.Country)
	symbol := c.Selection.Symbol
	if countryFlag != "" {
		country = models.Country(strings.ToUpper(strings.TrimSpace(countryFlag)))
		if !country.Valid() {
			return "", "", fmt.Errorf("unknown country %q", countryFlag)
		}
		symbol = ""
	}
	if symbolArg == "" {
		if symbol == "" {
			symbol = catalog.DefaultSymbolFor(country)
		}
		return country, symbol, nil
	}

	symbol = utils.NormalizeSymbol(symbolArg)
	inst, ok := catalog.Lookup(symbol)
	if !ok {
		return "", "", fmt.Errorf("%s is not in the catalog; run 'marketpulse catalog'", symbol)
	}
	if countryFlag == "" {
		country = inst.Country
	}
	if inst.Country != country {
		return "", "", fmt.Errorf("%s is not available for %s", symbol, country)
	}
	return country, symbol, nil
}

func upstreamURL(c *config.Config) string {
	if c.Upstream.BaseURL != "" {
		return c.Upstream.BaseURL
	}
	return datasource.DefaultChartURL
}

func selectedSymbol(c *config.Config) string {
	if c.Selection.Symbol != "" {
		return c.Selection.Symbol
	}
	return catalog.DefaultSymbolFor(models.Country(c.Selection.Country))
}
