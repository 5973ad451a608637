// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("GATEWAY_SECRET", "gw")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, GatewayProviderHMAC, cfg.Gateway.Provider)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Catalog.Snapshot)
	assert.Equal(t, 2*time.Minute, cfg.Reconcile.After)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CATALOG_SNAPSHOT", "true")
	t.Setenv("CATALOG_CACHE_TTL", "90s")
	t.Setenv("RECONCILE_AFTER", "10m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.Catalog.Snapshot)
	assert.Equal(t, 90*time.Second, cfg.Catalog.CacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.Reconcile.After)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"BadPort", map[string]string{"DB_PORT": "not-a-port"}},
		{"BadDuration", map[string]string{"IDEMPOTENCY_TTL": "forever"}},
		{"UnknownDriver", map[string]string{"STORE_DRIVER": "mongo"}},
		{"MissingJWTSecret", map[string]string{"JWT_SECRET": ""}},
		{"StripeWithoutKey", map[string]string{"GATEWAY_PROVIDER": "stripe"}},
		{"UnknownGateway", map[string]string{"GATEWAY_PROVIDER": "paypal"}},
		{"ZeroInterval", map[string]string{"RECONCILE_INTERVAL": "0s"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
