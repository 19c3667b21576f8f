// Package config handles configuration loading for marketpulse.
// It supports YAML config files, a .env file and environment variable
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seenimoa/marketpulse/internal/catalog"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "MARKETPULSE"

// Connectivity modes.
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
	ModeProbe   = "probe"
)

// Config represents the complete application configuration.
type Config struct {
	API          APIConfig          `mapstructure:"api"          yaml:"api" json:"api"`
	Upstream     UpstreamConfig     `mapstructure:"upstream"     yaml:"upstream" json:"upstream"`
	Cache        CacheConfig        `mapstructure:"cache"        yaml:"cache" json:"cache"`
	Refresh      RefreshConfig      `mapstructure:"refresh"      yaml:"refresh" json:"refresh"`
	Selection    SelectionConfig    `mapstructure:"selection"    yaml:"selection" json:"selection"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity" yaml:"connectivity" json:"connectivity"`
	Logging      LoggingConfig      `mapstructure:"logging"      yaml:"logging" json:"logging"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host" json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port" json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
	ServeUI     bool     `mapstructure:"serve_ui"     yaml:"serve_ui" json:"serve_ui"`
}

// Addr returns host:port for net.Listen.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// UpstreamConfig describes the chart endpoint.
type UpstreamConfig struct {
	BaseURL      string   `mapstructure:"base_url"       yaml:"base_url"       json:"base_url"`
	FallbackURLs []string `mapstructure:"fallback_urls"  yaml:"fallback_urls"  json:"fallback_urls"` // tried in order after BaseURL
	TimeoutMS    int      `mapstructure:"timeout_ms"     yaml:"timeout_ms"     json:"timeout_ms"`
	RatePerSec   float64  `mapstructure:"rate_per_sec"   yaml:"rate_per_sec"   json:"rate_per_sec"`
	Burst        int      `mapstructure:"burst"          yaml:"burst"          json:"burst"`
	UserAgent    string   `mapstructure:"user_agent"     yaml:"user_agent"     json:"user_agent"`
	APIKey       string   `mapstructure:"api_key"        yaml:"api_key"        json:"-"`              // only for keyed proxies
	APIKeyHeader string   `mapstructure:"api_key_header" yaml:"api_key_header" json:"api_key_header"` // e.g. "X-RapidAPI-Key"
}

// Timeout returns the per-fetch deadline.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutMS) * time.Millisecond
}

// CacheConfig holds quote cache settings.
type CacheConfig struct {
	FreshnessMS int `mapstructure:"freshness_ms" yaml:"freshness_ms" json:"freshness_ms"`
}

// Freshness returns the window within which a cached quote is served as is.
func (c CacheConfig) Freshness() time.Duration {
	return time.Duration(c.FreshnessMS) * time.Millisecond
}

// RefreshConfig holds scheduler settings.
type RefreshConfig struct {
	IntervalSec int  `mapstructure:"interval_sec" yaml:"interval_sec" json:"interval_sec"`
	Enabled     bool `mapstructure:"enabled"      yaml:"enabled" json:"enabled"`
}

// Interval returns the pause between refresh cycles.
func (r RefreshConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSec) * time.Second
}

// SelectionConfig is the selection on startup.
type SelectionConfig struct {
	Country string `mapstructure:"country" yaml:"country" json:"country"`
	Symbol  string `mapstructure:"symbol"  yaml:"symbol" json:"symbol"`
}

// ConnectivityConfig selects how online status is determined.
type ConnectivityConfig struct {
	Mode           string `mapstructure:"mode"             yaml:"mode" json:"mode"` // "online", "offline" or "probe"
	ProbeAddr      string `mapstructure:"probe_addr"       yaml:"probe_addr" json:"probe_addr"`
	ProbeTimeoutMS int    `mapstructure:"probe_timeout_ms" yaml:"probe_timeout_ms" json:"probe_timeout_ms"`
}

// ProbeTimeout returns the dial timeout of the probe.
func (c ConnectivityConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMS) * time.Millisecond
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "console" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.marketpulse/config.yaml (home directory)
//  3. /etc/marketpulse/config.yaml (system)
//
// A .env file in the working directory is loaded into the environment first
// without overriding variables that are already set. Environment variables
// override config file values.
// Format: MARKETPULSE_<SECTION>_<KEY>, e.g., MARKETPULSE_UPSTREAM_TIMEOUT_MS
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".marketpulse"))
	v.AddConfigPath("/etc/marketpulse")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	cfg.Selection.Country = strings.ToUpper(strings.TrimSpace(cfg.Selection.Country))
	return &cfg, nil
}

// loadDotEnv loads a .env file if it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.serve_ui", true)

	// Upstream defaults
	v.SetDefault("upstream.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("upstream.fallback_urls", []string{"https://query2.finance.yahoo.com/v8/finance/chart"})
	v.SetDefault("upstream.timeout_ms", 8000)
	v.SetDefault("upstream.rate_per_sec", 2.0)
	v.SetDefault("upstream.burst", 4)
	v.SetDefault("upstream.user_agent", "")
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.api_key_header", "X-API-Key")

	// Cache and refresh
	v.SetDefault("cache.freshness_ms", 30000)
	v.SetDefault("refresh.interval_sec", 30)
	v.SetDefault("refresh.enabled", true)

	// Selection
	v.SetDefault("selection.country", string(catalog.DefaultCountry))
	v.SetDefault("selection.symbol", "")

	// Connectivity
	v.SetDefault("connectivity.mode", ModeProbe)
	v.SetDefault("connectivity.probe_addr", "query1.finance.yahoo.com:443")
	v.SetDefault("connectivity.probe_timeout_ms", 2000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv(EnvPrefix + "_UPSTREAM_API_KEY"); key != "" {
		cfg.Upstream.APIKey = key
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.API.Port <= 0 || c.API.Port > 65535:
		return fmt.Errorf("api.port: %d out of range", c.API.Port)
	case c.Upstream.TimeoutMS <= 0:
		return fmt.Errorf("upstream.timeout_ms must be positive, got %d", c.Upstream.TimeoutMS)
	case c.Upstream.Burst < 0:
		return fmt.Errorf("upstream.burst must not be negative, got %d", c.Upstream.Burst)
	case c.Cache.FreshnessMS <= 0:
		return fmt.Errorf("cache.freshness_ms must be positive, got %d", c.Cache.FreshnessMS)
	case c.Refresh.IntervalSec <= 0:
		return fmt.Errorf("refresh.interval_sec must be positive, got %d", c.Refresh.IntervalSec)
	}

	country := models.Country(c.Selection.Country)
	if !country.Valid() {
		return fmt.Errorf("selection.country: unknown country %q", c.Selection.Country)
	}
	if c.Selection.Symbol != "" && !catalog.Contains(country, c.Selection.Symbol) {
		return fmt.Errorf("selection.symbol: %q is not listed for %s", c.Selection.Symbol, country)
	}

	switch c.Connectivity.Mode {
	case ModeOnline, ModeOffline:
	case ModeProbe:
		if c.Connectivity.ProbeAddr == "" {
			return errors.New("connectivity.probe_addr is required in probe mode")
		}
	default:
		return fmt.Errorf("connectivity.mode: unknown mode %q", c.Connectivity.Mode)
	}
	return nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
