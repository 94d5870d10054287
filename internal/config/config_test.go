package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "Memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.RateLimit.Max)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "X-IP", cfg.RateLimit.ClientHeader)
	assert.False(t, cfg.RateLimit.UseRemoteAddr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "redis")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "memory")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}

func TestDSN(t *testing.T) {
	c := StoreConfig{Host: "db", Port: "5433", User: "u", Password: "p", DBName: "n", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require", c.DSN())
}

func TestLoadEmptyClientHeaderUsesRemoteAddr(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("RATE_LIMIT_CLIENT_HEADER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.RateLimit.ClientHeader)
	assert.True(t, cfg.RateLimit.UseRemoteAddr)
}

func TestLoadCustomClientHeader(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("RATE_LIMIT_CLIENT_HEADER", "CF-Connecting-IP")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "CF-Connecting-IP", cfg.RateLimit.ClientHeader)
	assert.False(t, cfg.RateLimit.UseRemoteAddr)
}
