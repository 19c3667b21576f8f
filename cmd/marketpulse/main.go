// MarketPulse: live NSE/BSE and US quote dashboard
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/marketpulse/internal/catalog"
	"github.com/seenimoa/marketpulse/internal/config"
	"github.com/seenimoa/marketpulse/internal/logging"
	"github.com/seenimoa/marketpulse/pkg/models"
	"github.com/seenimoa/marketpulse/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root command's pre-run.
var (
	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "marketpulse",
	Short: "MarketPulse: live index and stock quotes for India and the US",
	Long: `MarketPulse shows a single live quote for a selected Indian or US
index or stock, refreshed every 30 seconds, with market status, distance
from the 52-week high, and demo data whenever the network is unavailable.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger = logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil // needs no config
	},
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "MarketPulse %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}

// --- Catalog Command ---

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the selectable indices and stocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("country")
		country := models.Country(strings.ToUpper(filter))
		if filter != "" && !country.Valid() {
			return fmt.Errorf("unknown country %q", filter)
		}
		printCatalog(cmd.OutOrStdout(), country)
		return nil
	},
}

func init() {
	catalogCmd.Flags().String("country", "", "only list one country (IN or US)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show market status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		now := time.Now()
		conn := newConnectivity(cfg)

		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintln(out, "  MarketPulse: System Status")
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
		fmt.Fprintf(out, "  Time (IST):    %s\n", utils.FormatDateTimeIST(now))
		fmt.Fprintf(out, "  Time (ET):     %s\n", utils.FormatDateTimeET(now))
		fmt.Fprintf(out, "  NSE/BSE:       %s\n", utils.MarketStatusAt(catalog.DefaultSymbolFor(models.CountryIN), now))
		fmt.Fprintf(out, "  NYSE/NASDAQ:   %s\n", utils.MarketStatusAt(catalog.DefaultSymbolFor(models.CountryUS), now))
		fmt.Fprintf(out, "  Online:        %v (%s)\n", conn.Online(cmd.Context()), cfg.Connectivity.Mode)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Configuration:")
		fmt.Fprintf(out, "    Upstream:      %s (timeout %s)\n", upstreamURL(cfg), cfg.Upstream.Timeout())
		fmt.Fprintf(out, "    Cache:         fresh for %s\n", cfg.Cache.Freshness())
		fmt.Fprintf(out, "    Refresh:       every %s (enabled: %v)\n", cfg.Refresh.Interval(), cfg.Refresh.Enabled)
		fmt.Fprintf(out, "    Selection:     %s %s\n", cfg.Selection.Country, selectedSymbol(cfg))
		fmt.Fprintf(out, "    API Server:    %s\n", cfg.API.Addr())
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set (not needed for the public endpoint)"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s, header %s)", k.Source, k.Masked, k.Header)
			}
			fmt.Fprintf(out, "    %-25s %s\n", k.Name+":", status)
		}

		fmt.Fprintln(out, "═══════════════════════════════════════")
		return nil
	},
}
