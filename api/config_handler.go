// Package api: configuration endpoints.
package api

import (
	"net/http"

	"github.com/seenimoa/marketpulse/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Upstream     UpstreamView              `json:"upstream"`
	Cache        config.CacheConfig        `json:"cache"`
	Refresh      config.RefreshConfig      `json:"refresh"`
	Selection    config.SelectionConfig    `json:"selection"`
	Connectivity config.ConnectivityConfig `json:"connectivity"`
	Logging      config.LoggingConfig      `json:"logging"`
}

// UpstreamView is the upstream section without the API key.
type UpstreamView struct {
	BaseURL      string   `json:"base_url"`
	FallbackURLs []string `json:"fallback_urls,omitempty"`
	TimeoutMS    int      `json:"timeout_ms"`
	RatePerSec   float64  `json:"rate_per_sec"`
	Burst        int      `json:"burst"`
	KeyHeader    string   `json:"api_key_header,omitempty"`
}

// handleGetConfig returns the running configuration. Secrets are left out.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	up := s.cfg.Upstream
	view := UpstreamView{
		BaseURL:      up.BaseURL,
		FallbackURLs: up.FallbackURLs,
		TimeoutMS:    up.TimeoutMS,
		RatePerSec:   up.RatePerSec,
		Burst:        up.Burst,
	}
	if up.APIKey != "" {
		view.KeyHeader = up.APIKeyHeader
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Upstream:     view,
			Cache:        s.cfg.Cache,
			Refresh:      s.cfg.Refresh,
			Selection:    s.cfg.Selection,
			Connectivity: s.cfg.Connectivity,
			Logging:      s.cfg.Logging,
		},
	})
}

// handleGetConfigKeys returns the status of the upstream API key.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}
