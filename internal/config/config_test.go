package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("FINANCE_TIMEOUT_SECONDS", "")
	t.Setenv("ANALYTICS_CACHE_BACKEND", "")
	t.Setenv("REDIS_KEY_PREFIX", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Finance.Timeout())
	assert.Equal(t, time.Minute, cfg.Analytics.CacheTTL())
	assert.Equal(t, "redis", cfg.Analytics.CacheBackend)
	assert.Equal(t, "0 */15 * * * *", cfg.Reconcile.Cron)
	assert.Equal(t, "aftersales:analytics", cfg.Redis.KeyPrefix)

	limit, ok := cfg.Deduction.Limit("installer")
	require.True(t, ok)
	assert.Equal(t, "5000", limit.String())
	_, ok = cfg.Deduction.Limit("FACTORY")
	assert.False(t, ok)
}

func TestLoadDeductionOverrides(t *testing.T) {
	t.Setenv("DEDUCTION_LIMIT_FACTORY", "100000.50")
	t.Setenv("DEDUCTION_LIMIT_INSTALLER", "0")

	cfg, err := Load()
	require.NoError(t, err)

	limit, ok := cfg.Deduction.Limit("FACTORY")
	require.True(t, ok)
	assert.Equal(t, "100000.5", limit.String())
	_, ok = cfg.Deduction.Limit("INSTALLER")
	assert.False(t, ok)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DEDUCTION_LIMIT_CUSTOMER", "lots")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownCacheBackend(t *testing.T) {
	t.Setenv("ANALYTICS_CACHE_BACKEND", "memcached")
	_, err := Load()
	assert.Error(t, err)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, AppConfig{TimeZone: "Mars/Olympus"}.Location())
}
