package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	LoadConfig()

	assert.Equal(t, "8080", Cfg.Port)
	assert.Equal(t, "ILS", Cfg.DefaultCurrency)
	assert.Equal(t, int64(10*1024*1024), Cfg.MaxUploadSizeBytes)
	assert.Equal(t, 30*time.Minute, Cfg.SkipLogRetention)
	assert.Equal(t, 30, Cfg.RateLimitBurst)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_CURRENCY", "USD")
	t.Setenv("SKIP_LOG_RETENTION", "5m")
	t.Setenv("RATE_LIMIT_BURST", "10")

	LoadConfig()

	assert.Equal(t, "9090", Cfg.Port)
	assert.Equal(t, "USD", Cfg.DefaultCurrency)
	assert.Equal(t, 5*time.Minute, Cfg.SkipLogRetention)
	assert.Equal(t, 10, Cfg.RateLimitBurst)
}

func TestLoadConfigRejectsBadCurrency(t *testing.T) {
	t.Setenv("DEFAULT_CURRENCY", "shekels")

	LoadConfig()
	assert.Equal(t, "ILS", Cfg.DefaultCurrency)
}
