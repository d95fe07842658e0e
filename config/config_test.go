package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MARKETCHECK_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Honda", cfg.Make)
	assert.Equal(t, "Passport", cfg.Model)
	assert.Equal(t, 2020, cfg.MinYear)
	assert.Equal(t, "CA", cfg.Country)
	assert.Equal(t, 50, cfg.MaxListings)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "https://api.marketcheck.com/v2/search/car/active", cfg.BaseURL)
}

func TestLoadEmailFallsBackToSMTPUser(t *testing.T) {
	t.Setenv("MARKETCHECK_API_KEY", "test-key")
	t.Setenv("SMTP_USER", "reports@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "reports@example.com", cfg.EmailFrom)
	assert.Equal(t, "reports@example.com", cfg.EmailTo)
}

func TestLoadClampsRadius(t *testing.T) {
	t.Setenv("MARKETCHECK_API_KEY", "test-key")
	t.Setenv("CAR_SEARCH_RADIUS_MILES", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, MaxRadiusMiles, cfg.RadiusMiles)
}

func TestLoadExplicitLists(t *testing.T) {
	t.Setenv("MARKETCHECK_API_KEY", "test-key")
	t.Setenv("CAR_SEARCH_YEARS", "2021,2023")
	t.Setenv("EXCLUDED_TRIMS", "Black Edition,Sport")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int{2021, 2023}, cfg.Years)
	assert.Equal(t, []string{"Black Edition", "Sport"}, cfg.ExcludedTrims)
}

func TestValidateSearch(t *testing.T) {
	cfg := &Config{APIKey: "", MaxListings: 50}
	assert.ErrorIs(t, cfg.ValidateSearch(), ErrMissingAPIKey)

	cfg.APIKey = "test-key"
	assert.NoError(t, cfg.ValidateSearch())

	cfg.MaxListings = 0
	assert.Error(t, cfg.ValidateSearch())
}

func TestValidateSMTP(t *testing.T) {
	cfg := &Config{
		SMTPHost:  "smtp.example.com",
		SMTPPort:  587,
		SMTPUser:  "reports@example.com",
		SMTPPass:  "secret",
		EmailFrom: "reports@example.com",
		EmailTo:   "me@example.com",
	}
	assert.NoError(t, cfg.ValidateSMTP())

	cfg.SMTPPass = ""
	assert.Error(t, cfg.ValidateSMTP())
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "CAD", (&Config{Country: "CA"}).Currency())
	assert.Equal(t, "CAD", (&Config{Country: "ca"}).Currency())
	assert.Equal(t, "USD", (&Config{Country: "US"}).Currency())
	assert.Equal(t, "USD", (&Config{Country: ""}).Currency())
}
