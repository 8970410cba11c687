package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwatkins/billtrack/internal/config"
)

const testJWTSecret = "test-jwt-secret-that-is-long-enough-123"

// setRequiredEnv sets the settings that have no defaults.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BILLTRACK_DATABASE_URL", "postgres://localhost:5432/billtrack_test")
	t.Setenv("BILLTRACK_AUTH_JWT_SECRET", testJWTSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.False(t, cfg.Server.LogPretty)
	assert.Equal(t, 5, cfg.Database.PingTimeoutSeconds)
	assert.Equal(t, 60, cfg.Auth.TokenLifetimeMinutes)
	assert.Equal(t, 3, cfg.Assignment.MaxAssignedBills)
	assert.Equal(t, 3, cfg.Assignment.MaxAttempts)
	assert.Equal(t, 30, cfg.Assignment.CacheTTLSeconds)
	assert.Equal(t, 60, cfg.Assignment.CacheSweepIntervalSeconds)
	assert.Empty(t, cfg.Assignment.ActiveStages)
	assert.Empty(t, cfg.Assignment.AssignableStages)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BILLTRACK_SERVER_PORT", "9090")
	t.Setenv("BILLTRACK_SERVER_LOG_LEVEL", "debug")
	t.Setenv("BILLTRACK_ASSIGNMENT_MAX_ASSIGNED_BILLS", "5")
	t.Setenv("BILLTRACK_ASSIGNMENT_CACHE_TTL_SECONDS", "10")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 5, cfg.Assignment.MaxAssignedBills)
	assert.Equal(t, 10, cfg.Assignment.CacheTTLSeconds)
	assert.Equal(t, testJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "postgres://localhost:5432/billtrack_test", cfg.Database.URL)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("BILLTRACK_AUTH_JWT_SECRET", testJWTSecret)

	cfg, err := config.Load()
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestLoad_ShortJWTSecret(t *testing.T) {
	t.Setenv("BILLTRACK_DATABASE_URL", "postgres://localhost:5432/billtrack_test")
	t.Setenv("BILLTRACK_AUTH_JWT_SECRET", "too-short")

	cfg, err := config.Load()
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BILLTRACK_SERVER_LOG_LEVEL", "verbose")

	cfg, err := config.Load()
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "invalid configuration")
}
