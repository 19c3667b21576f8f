package datasource

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/seenimoa/marketpulse/pkg/models"
)

// ErrNoSources is returned by an Aggregator without sources.
var ErrNoSources = errors.New("datasource: no quote sources configured")

// Aggregator tries its sources in order and returns the first quote.
// The caller's deadline spans the whole chain.
type Aggregator struct {
	sources []QuoteSource
	log     zerolog.Logger
}

// NewAggregator creates an aggregator over sources, primary first.
func NewAggregator(log zerolog.Logger, sources ...QuoteSource) *Aggregator {
	return &Aggregator{sources: sources, log: log}
}

// Sources returns all registered data sources.
func (a *Aggregator) Sources() []QuoteSource {
	return append([]QuoteSource(nil), a.sources...)
}

// Name lists the source names in fallback order.
func (a *Aggregator) Name() string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return strings.Join(names, " -> ")
}

// Fetch returns the first successful quote. When every source fails, the
// last error is returned unchanged so its kind survives.
func (a *Aggregator) Fetch(ctx context.Context, symbol string) (models.Quote, error) {
	if len(a.sources) == 0 {
		return models.Quote{}, ErrNoSources
	}

	var err error
	for i, s := range a.sources {
		var q models.Quote
		q, err = s.Fetch(ctx, symbol)
		if err == nil {
			if i > 0 {
				a.log.Info().Str("symbol", symbol).Str("source", s.Name()).Msg("served by fallback source")
			}
			return q, nil
		}
		if ctx.Err() != nil {
			return models.Quote{}, err
		}
		if i < len(a.sources)-1 {
			a.log.Debug().Err(err).Str("symbol", symbol).Str("source", s.Name()).Msg("source failed, trying next")
		}
	}
	return models.Quote{}, err
}
