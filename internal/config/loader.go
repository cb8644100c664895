package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering, low to high precedence:
//  1. defaults (New())
//  2. YAML file if FORECAST_CONFIG is set
//  3. environment variables (prefix FORECAST_)
//
// The enabled flag for the metrics provider defaults to the presence of a
// refresh token unless chartmetric_enabled is set explicitly.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("FORECAST_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// FORECAST_WAREHOUSE_DSN -> warehouse_dsn; underscores are preserved to
	// match the koanf tags on the struct.
	envProvider := env.Provider("FORECAST_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "forecast_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if !k.Exists("chartmetric_enabled") {
		cfg.ChartmetricEnabled = cfg.ChartmetricRefreshToken != ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
