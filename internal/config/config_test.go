package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.Storage.PresignTTL)
	assert.Equal(t, "usd", cfg.Payments.Currency)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Server.Env = "staging"
	cfg.Database.Host = ""
	cfg.Payments.Currency = "dollars"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_ENV")
	assert.Contains(t, err.Error(), "DB_HOST")
	assert.Contains(t, err.Error(), "STORE_CURRENCY")
}

func TestValidate_ProductionRequiresPaymentSecrets(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Server.Env = "production"
	cfg.Payments.SecretKey = ""
	cfg.Payments.WebhookSecret = ""

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")
}

func TestValidate_StorageCredentialsPaired(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Storage.AccessKey = "AKIA"
	cfg.Storage.SecretKey = ""

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")
}

func TestCheckoutURLs(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Server.PublicURL = "https://haven.test/"

	success, cancel := cfg.CheckoutURLs()
	assert.Equal(t, "https://haven.test/checkout/success?session_id={CHECKOUT_SESSION_ID}", success)
	assert.Equal(t, "https://haven.test/checkout/cancelled", cancel)
}
