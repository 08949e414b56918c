package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("EMAIL_PROVIDER", "smtp")
	t.Setenv("SMTP_USERNAME", "owner@example.com")
	t.Setenv("EMAIL_FROM", "owner@example.com")
	t.Setenv("CONTACT_EMAIL_TO", "owner@example.com")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "3600")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, ProviderSMTP, cfg.EmailProvider)
	assert.Equal(t, "owner@example.com", cfg.ContactEmailTo)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, time.Hour, cfg.RateLimitWindow)
}

func TestLoadConfigUnknownProviderFallsBackToSMTP(t *testing.T) {
	t.Setenv("EMAIL_PROVIDER", "Carrier-Pigeon")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ProviderSMTP, cfg.EmailProvider)
}

func TestLoadConfigWithoutSenderLeavesAddressesEmpty(t *testing.T) {
	t.Setenv("EMAIL_PROVIDER", "resend")
	t.Setenv("EMAIL_FROM", "")
	t.Setenv("SMTP_USERNAME", "")
	t.Setenv("CONTACT_EMAIL_TO", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.EmailFrom)
	assert.Empty(t, cfg.ContactEmailTo)
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("TEST_LIST", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvList("TEST_LIST", nil))

	t.Setenv("TEST_LIST", "  ")
	assert.Equal(t, []string{"x"}, getEnvList("TEST_LIST", []string{"x"}))
}

func TestGetEnvIntInvalidUsesFallback(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))
}
