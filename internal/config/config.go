// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load(ctx) layers file and env on top.
// - Credentials are never defaulted; an empty credential only fails when the
//   adapter that needs it is called.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// StageTimeout bounds each pipeline stage (geocoding, estimating, ...).
	StageTimeout time.Duration `koanf:"stage_timeout"`

	// HTTPTimeout is the outbound http.Client timeout shared by the adapters.
	HTTPTimeout time.Duration `koanf:"http_timeout"`

	// ExportTimeout bounds a whole export (render, upload, publish).
	ExportTimeout time.Duration `koanf:"export_timeout"`

	Geocoder  Geocoder  `koanf:"geocoder"`
	Valuation Valuation `koanf:"valuation"`
	Drive     Drive     `koanf:"drive"`
}

// Geocoder configures the address lookup provider.
type Geocoder struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Referer string `koanf:"referer"`
}

// Valuation configures the valuation provider and its service account.
type Valuation struct {
	BaseURL  string `koanf:"base_url"`
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
}

// Drive configures the file store used for report export.
type Drive struct {
	ClientEmail string `koanf:"client_email"`
	PrivateKey  string `koanf:"private_key"`
	// FolderID optionally places uploaded reports in a shared folder.
	FolderID string `koanf:"folder_id"`
	// Endpoint overrides the Drive API endpoint; empty means Google's.
	Endpoint string `koanf:"endpoint"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":3000",
		StageTimeout:  15 * time.Second,
		HTTPTimeout:   20 * time.Second,
		ExportTimeout: 60 * time.Second,
		Geocoder: Geocoder{
			BaseURL: "https://maps.googleapis.com",
		},
		Valuation: Valuation{
			BaseURL: "https://datazap-gateway.zap.com.br",
		},
	}
}
