package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/marketpulse/api"
	"github.com/seenimoa/marketpulse/internal/logging"
	"github.com/seenimoa/marketpulse/internal/refresh"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard and HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.API.Port = port
		}
		if noUI, _ := cmd.Flags().GetBool("no-ui"); noUI {
			cfg.API.ServeUI = false
		}
		offline, _ := cmd.Flags().GetBool("offline")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, offline)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
	serveCmd.Flags().Bool("no-ui", false, "serve the API only")
	serveCmd.Flags().Bool("offline", false, "never contact the upstream; serve demo data")
}

// runServer runs the WebSocket hub, the refresh scheduler and the HTTP
// server until ctx is cancelled or one of them fails.
func runServer(ctx context.Context, offline bool) error {
	cs := newComponents(cfg, offline)
	hub := api.NewWSHub(logging.Component(logger, "ws"))

	presenter := refresh.Presenters{hub, refresh.LogPresenter{Log: logging.Component(logger, "quote")}}
	orch, err := cs.orchestrator(cfg, presenter, models.Country(cfg.Selection.Country), cfg.Selection.Symbol)
	if err != nil {
		return err
	}

	srv, err := api.NewServer(cfg, api.Deps{
		Refresher:    orch,
		Fetcher:      cs.fetcher,
		Mock:         cs.mock,
		Connectivity: cs.conn,
		Hub:          hub,
		Logger:       logging.Component(logger, "http"),
		Version:      version,
	})
	if err != nil {
		return err
	}

	st := orch.Snapshot()
	fmt.Printf("🌐 MarketPulse on http://%s (%s %s)\n", cfg.API.Addr(), st.Country, st.Symbol)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx, cfg.API.Addr()) })
	if cfg.Refresh.Enabled {
		g.Go(func() error { return orch.Run(ctx) })
	} else {
		logger.Info().Msg("scheduled refresh disabled; quotes update on request only")
	}
	return g.Wait()
}
