// Package config defines service configuration, layered from defaults, an
// optional YAML file, and FORECAST_-prefixed environment variables.
package config

import (
	"errors"
	"time"
)

// Config holds all service settings.
type Config struct {
	// HTTPAddr configures the HTTP listen address, e.g. ":8080".
	HTTPAddr string `koanf:"http_addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: json or text.
	LogFormat string `koanf:"log_format"`

	// ShutdownTimeout bounds graceful HTTP drain on termination.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Warehouse connection.
	WarehouseDSN          string        `koanf:"warehouse_dsn"`
	WarehouseQueryTimeout time.Duration `koanf:"warehouse_query_timeout"`
	WarehouseMaxConns     int           `koanf:"warehouse_max_conns"`

	// Chartmetric metrics provider. Enabled defaults to whether a refresh
	// token is present; forecasts degrade to zero social metrics without it.
	ChartmetricEnabled         bool          `koanf:"chartmetric_enabled"`
	ChartmetricBaseURL         string        `koanf:"chartmetric_base_url"`
	ChartmetricRefreshToken    string        `koanf:"chartmetric_refresh_token"`
	ChartmetricTimeout         time.Duration `koanf:"chartmetric_timeout"`
	ChartmetricRPS             float64       `koanf:"chartmetric_rps"`
	ChartmetricRateLimitBudget time.Duration `koanf:"chartmetric_rate_limit_budget"`
	ChartmetricRetries         int           `koanf:"chartmetric_retries"`
	ChartmetricRetryDelay      time.Duration `koanf:"chartmetric_retry_delay"`
	ChartmetricCacheSize       int           `koanf:"chartmetric_cache_size"`

	// Model artifact paths, one per schema variant.
	ModelFullPath    string `koanf:"model_full_path"`
	ModelCompactPath string `koanf:"model_compact_path"`
}

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: 10 * time.Second,

		WarehouseQueryTimeout: 5 * time.Second,
		WarehouseMaxConns:     10,

		ChartmetricBaseURL:         "https://api.chartmetric.com/api",
		ChartmetricTimeout:         10 * time.Second,
		ChartmetricRPS:             2,
		ChartmetricRateLimitBudget: 30 * time.Second,
		ChartmetricRetries:         2,
		ChartmetricRetryDelay:      2 * time.Second,
		ChartmetricCacheSize:       1000,

		ModelFullPath:    "models/sellout_full.json",
		ModelCompactPath: "models/sellout_compact.json",
	}
}

// Validate checks cross-field requirements after loading.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("http_addr must not be empty")
	}
	if c.WarehouseDSN == "" {
		return errors.New("warehouse_dsn is required")
	}
	if c.ChartmetricEnabled && c.ChartmetricRefreshToken == "" {
		return errors.New("chartmetric_enabled is true but chartmetric_refresh_token is not set")
	}
	if c.ModelFullPath == "" || c.ModelCompactPath == "" {
		return errors.New("model artifact paths are required for both variants")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	return nil
}
