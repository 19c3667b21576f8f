package refresh

import (
	"github.com/rs/zerolog"

	"github.com/seenimoa/marketpulse/pkg/models"
)

// Presenters fans every notification out to each member in order.
type Presenters []Presenter

func (ps Presenters) ShowLoading() {
	for _, p := range ps {
		p.ShowLoading()
	}
}

func (ps Presenters) HideLoading() {
	for _, p := range ps {
		p.HideLoading()
	}
}

func (ps Presenters) ShowError(msg string) {
	for _, p := range ps {
		p.ShowError(msg)
	}
}

func (ps Presenters) Display(view models.QuoteView) {
	for _, p := range ps {
		p.Display(view)
	}
}

// LogPresenter writes each displayed quote to a logger.
type LogPresenter struct {
	Log zerolog.Logger
}

func (LogPresenter) ShowLoading() {}
func (LogPresenter) HideLoading() {}

func (l LogPresenter) ShowError(msg string) {
	l.Log.Warn().Msg(msg)
}

func (l LogPresenter) Display(v models.QuoteView) {
	l.Log.Info().
		Str("symbol", v.Symbol).
		Str("price", v.Price).
		Str("change", v.Change).
		Str("market", string(v.MarketStatus)).
		Msg("quote")
}
