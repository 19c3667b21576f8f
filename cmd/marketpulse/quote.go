package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/marketpulse/internal/catalog"
	"github.com/seenimoa/marketpulse/pkg/models"
	"github.com/seenimoa/marketpulse/pkg/utils"
)

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote [symbol]",
	Short: "Print one quote and exit",
	Long: `Print a single quote for a catalog symbol. Aliases such as "nifty",
"sensex" or "google" are accepted. Without a symbol the configured
selection is used.

Examples:
  marketpulse quote
  marketpulse quote nifty
  marketpulse quote AAPL
  marketpulse quote --country US
  marketpulse quote TCS.NS --offline`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		country, symbol, err := selectionFromFlags(cmd, args)
		if err != nil {
			return err
		}
		offline, _ := cmd.Flags().GetBool("offline")

		cs := newComponents(cfg, offline)
		orch, err := cs.orchestrator(cfg, &terminalPresenter{out: cmd.OutOrStdout()}, country, symbol)
		if err != nil {
			return err
		}
		_, err = orch.Refresh(cmd.Context(), true)
		return err
	},
}

// --- Watch Command ---

var watchCmd = &cobra.Command{
	Use:   "watch [symbol]",
	Short: "Print a quote every refresh interval until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		country, symbol, err := selectionFromFlags(cmd, args)
		if err != nil {
			return err
		}
		offline, _ := cmd.Flags().GetBool("offline")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cs := newComponents(cfg, offline)
		orch, err := cs.orchestrator(cfg, &terminalPresenter{out: cmd.OutOrStdout()}, country, symbol)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s every %s. Press Ctrl+C to stop.\n", symbol, cfg.Refresh.Interval())
		return orch.Run(ctx)
	},
}

func init() {
	for _, c := range []*cobra.Command{quoteCmd, watchCmd} {
		c.Flags().String("country", "", "country of the selection (IN or US)")
		c.Flags().Bool("offline", false, "never contact the upstream; print demo data")
	}
}

func selectionFromFlags(cmd *cobra.Command, args []string) (models.Country, string, error) {
	countryFlag, _ := cmd.Flags().GetString("country")
	var symbolArg string
	if len(args) > 0 {
		symbolArg = args[0]
	}
	return resolveSelection(cfg, countryFlag, symbolArg)
}

// terminalPresenter renders orchestrator notifications as text.
type terminalPresenter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *terminalPresenter) ShowLoading() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, "⏳ Fetching live data…")
}

func (p *terminalPresenter) HideLoading() {}

func (p *terminalPresenter) ShowError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "⚠️  %s\n", msg)
}

func (p *terminalPresenter) Display(v models.QuoteView) {
	p.mu.Lock()
	defer p.mu.Unlock()

	q := v.Quote
	arrow := "▲"
	if v.Direction == "negative" {
		arrow = "▼"
	}
	fmt.Fprintln(p.out, "───────────────────────────────────────")
	fmt.Fprintf(p.out, "  %s (%s)\n", v.Name, v.Symbol)
	fmt.Fprintf(p.out, "  %s  %s %s\n", utils.FormatFull(q.Currency, q.CurrentPrice), arrow, v.Change)
	fmt.Fprintf(p.out, "  Market:          %s\n", v.MarketStatus)
	fmt.Fprintf(p.out, "  Open:            %s\n", utils.FormatFull(q.Currency, q.OpenPrice))
	fmt.Fprintf(p.out, "  Previous close:  %s\n", utils.FormatFull(q.Currency, q.PreviousClose))
	fmt.Fprintf(p.out, "  Day range:       %s – %s\n", utils.FormatFull(q.Currency, q.DayLow), utils.FormatFull(q.Currency, q.DayHigh))
	fmt.Fprintf(p.out, "  52-week high:    %s (%s)\n", utils.FormatFull(q.Currency, q.FiftyTwoWeekHigh), v.Correction)
	fmt.Fprintf(p.out, "  52-week low:     %s\n", utils.FormatFull(q.Currency, q.FiftyTwoWeekLow))
	fmt.Fprintf(p.out, "  Upside to high:  %s\n", v.Upside)
	fmt.Fprintf(p.out, "  Last updated:    %s\n", v.LastUpdated)
}

// printCatalog lists instruments, one country at a time. An empty country
// lists all of them.
func printCatalog(w io.Writer, only models.Country) {
	for _, ci := range catalog.Countries() {
		if only != "" && ci.Code != only {
			continue
		}
		fmt.Fprintf(w, "%s %s (%s)\n", ci.Flag, ci.Name, ci.Code.Currency())
		for _, group := range []struct {
			title string
			list  []models.Instrument
		}{
			{"Indices", catalog.Indices(ci.Code)},
			{"Stocks", catalog.Stocks(ci.Code)},
		} {
			fmt.Fprintf(w, "  %s:\n", group.title)
			for _, inst := range group.list {
				fmt.Fprintf(w, "    %-15s %s\n", inst.Symbol, inst.DisplayName)
			}
		}
	}
}
