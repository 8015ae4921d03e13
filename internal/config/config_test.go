package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "CONVERSION_RATE", "CONVERSION_CURRENCY", "TRACKING_TIMEOUT", "DEFAULT_PAGE_LIMIT", "SEED_DEMO_DATA"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 110.0, cfg.Conversion.Rate)
	assert.Equal(t, "USD", cfg.Conversion.Currency)
	assert.Equal(t, 10*time.Second, cfg.Conversion.Timeout)
	assert.Equal(t, 10, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.False(t, cfg.SeedDemoData)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CONVERSION_RATE", "120.5")
	t.Setenv("CONVERSION_CURRENCY", "eur")
	t.Setenv("TRACKING_TIMEOUT", "3s")
	t.Setenv("IDEMPOTENCY_TTL", "60")
	t.Setenv("MAX_PAGE_LIMIT", "40")
	t.Setenv("SEED_DEMO_DATA", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 120.5, cfg.Conversion.Rate)
	assert.Equal(t, "EUR", cfg.Conversion.Currency)
	assert.Equal(t, 3*time.Second, cfg.Conversion.Timeout)
	assert.Equal(t, time.Minute, cfg.IdempotencyTTL)
	assert.Equal(t, 40, cfg.Pagination.MaxLimit)
	assert.True(t, cfg.SeedDemoData)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CONVERSION_RATE", "-4")
	t.Setenv("TRACKING_TIMEOUT", "soon")
	t.Setenv("DEFAULT_PAGE_LIMIT", "ten")

	cfg := Load()

	assert.Equal(t, 110.0, cfg.Conversion.Rate)
	assert.Equal(t, 10*time.Second, cfg.Conversion.Timeout)
	assert.Equal(t, 10, cfg.Pagination.DefaultLimit)
}
