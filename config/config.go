// Package config loads the process configuration once at startup. The
// resulting Config is immutable for the duration of a run and passed by
// reference into the pipeline; no component reads the environment directly.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// ErrMissingAPIKey means no search API credential is configured. The run
// must abort before any network call.
var ErrMissingAPIKey = errors.New("MARKETCHECK_API_KEY is not set in environment")

// MaxRadiusMiles caps the geo search radius. The API's free plan rejects
// larger radii with a 422.
const MaxRadiusMiles = 100

type Config struct {
	// Search API
	APIKey  string `env:"MARKETCHECK_API_KEY"`
	BaseURL string `env:"MARKETCHECK_BASE_URL" envDefault:"https://api.marketcheck.com/v2/search/car/active"`

	// Search parameters
	Make        string `env:"CAR_SEARCH_MAKE" envDefault:"Honda"`
	Model       string `env:"CAR_SEARCH_MODEL" envDefault:"Passport"`
	MinYear     int    `env:"CAR_SEARCH_MIN_YEAR" envDefault:"2020"`
	Years       []int  `env:"CAR_SEARCH_YEARS" envSeparator:","`
	Country     string `env:"CAR_SEARCH_COUNTRY" envDefault:"CA"`
	State       string `env:"CAR_SEARCH_STATE"`
	ZIP         string `env:"CAR_SEARCH_ZIP"`
	RadiusMiles int    `env:"CAR_SEARCH_RADIUS_MILES" envDefault:"100"`
	MaxListings int    `env:"MAX_LISTINGS" envDefault:"50"`

	// Report filtering
	ExcludedTrims []string `env:"EXCLUDED_TRIMS" envSeparator:","`

	// Email delivery
	SMTPHost  string `env:"SMTP_HOST"`
	SMTPPort  int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser  string `env:"SMTP_USER"`
	SMTPPass  string `env:"SMTP_PASS"`
	EmailFrom string `env:"EMAIL_FROM"`
	EmailTo   string `env:"EMAIL_TO"`

	// Historical storage (optional; empty path disables the upsert step)
	DBPath string `env:"REPORT_DB_PATH"`

	// Daemon mode schedule and inspection API port
	ReportSchedule string `env:"REPORT_SCHEDULE" envDefault:"0 13 * * *"`
	ServerPort     string `env:"SERVER_PORT" envDefault:"5250"`
}

// Load reads the environment into a Config. A .env file is honored for
// local development; its absence is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.EmailFrom == "" {
		cfg.EmailFrom = cfg.SMTPUser
	}
	if cfg.EmailTo == "" {
		cfg.EmailTo = cfg.SMTPUser
	}
	if cfg.RadiusMiles > MaxRadiusMiles {
		cfg.RadiusMiles = MaxRadiusMiles
	}

	return cfg, nil
}

// ValidateSearch checks the configuration needed before any fetch.
func (c *Config) ValidateSearch() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.MaxListings <= 0 {
		return fmt.Errorf("MAX_LISTINGS must be positive, got %d", c.MaxListings)
	}
	return nil
}

// ValidateSMTP checks that the delivery collaborator is fully configured.
func (c *Config) ValidateSMTP() error {
	if c.SMTPHost == "" || c.SMTPPort == 0 || c.SMTPUser == "" || c.SMTPPass == "" ||
		c.EmailFrom == "" || c.EmailTo == "" {
		return errors.New("SMTP configuration is incomplete; check environment variables")
	}
	return nil
}

// Currency derives the report currency from the search country.
func (c *Config) Currency() string {
	if c.Country == "CA" || c.Country == "ca" {
		return "CAD"
	}
	return "USD"
}
