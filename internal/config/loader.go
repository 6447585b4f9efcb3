package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names recognised by Load.
const (
	EnvPrefix     = "APPRAISAL_"
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if APPRAISAL_CONFIG is set
//  3. env (prefix APPRAISAL_, "__" separates nested keys)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// APPRAISAL_STAGE_TIMEOUT -> stage_timeout
	// APPRAISAL_GEOCODER__API_KEY -> geocoder.api_key
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StageTimeout <= 0:
		return fmt.Errorf("%w: stage_timeout must be positive", ErrInvalidConfig)
	case c.HTTPTimeout <= 0:
		return fmt.Errorf("%w: http_timeout must be positive", ErrInvalidConfig)
	case c.ExportTimeout <= 0:
		return fmt.Errorf("%w: export_timeout must be positive", ErrInvalidConfig)
	case strings.TrimSpace(c.Geocoder.BaseURL) == "":
		return fmt.Errorf("%w: geocoder.base_url must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.Valuation.BaseURL) == "":
		return fmt.Errorf("%w: valuation.base_url must not be empty", ErrInvalidConfig)
	}
	return nil
}

// DriveConfigured reports whether export credentials are present.
func (c *Config) DriveConfigured() bool {
	return c.Drive.ClientEmail != "" && c.Drive.PrivateKey != ""
}
