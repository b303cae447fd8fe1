package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredSecrets fills the keys Load refuses to start without.
func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test_123")
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadRequiresStripeSecrets(t *testing.T) {
	// A service started without the webhook secret would verify deliveries
	// against the empty key and accept forged payment events.
	setRequiredSecrets(t)
	t.Setenv("STRIPE_SECRET_KEY", "")

	_, err := Load()
	assert.ErrorContains(t, err, "STRIPE_SECRET_KEY")

	setRequiredSecrets(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	_, err = Load()
	assert.ErrorContains(t, err, "STRIPE_WEBHOOK_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, int64(15000), cfg.MinOrderAmount)
	assert.Equal(t, 2*time.Second, cfg.PollInitialDelay)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 10, cfg.PollMaxRetries)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("MIN_ORDER_AMOUNT", "20000")
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(20000), cfg.MinOrderAmount)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("STORAGE_BACKEND", "cassandra")

	_, err := Load()
	assert.ErrorContains(t, err, "STORAGE_BACKEND")
}
