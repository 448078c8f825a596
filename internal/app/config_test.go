package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.AccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Auth.JWT.RefreshTTL)
	require.Equal(t, 5, cfg.Auth.Local.LockoutThreshold)
	require.Equal(t, 30*time.Minute, cfg.Auth.Local.LockoutDuration)
	require.Equal(t, 15*time.Minute, cfg.Auth.Verification.CodeTTL)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 5, cfg.RateLimits.Login.Limit)
	require.Equal(t, 15*time.Minute, cfg.RateLimits.Login.Window)
	require.Equal(t, time.Hour, cfg.RateLimits.Register.Window)
	require.Equal(t, 100, cfg.RateLimits.Read.Limit)
	require.Equal(t, 20, cfg.RateLimits.Write.Limit)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	contents := `
server:
  port: 9100
  log_level: debug
  allowed_origins:
    - https://kgr33n.dev
auth:
  jwt:
    secret: file-secret
    access_token_ttl: 5m
rate_limits:
  login:
    limit: 2
    window: 30s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(contents), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, []string{"https://kgr33n.dev"}, cfg.Server.AllowedOrigins)
	require.Equal(t, "file-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 5*time.Minute, cfg.Auth.JWT.AccessTTL)
	require.Equal(t, 2, cfg.RateLimits.Login.Limit)
	require.Equal(t, 30*time.Second, cfg.RateLimits.Login.Window)

	// Untouched sections keep their defaults.
	require.Equal(t, "portfolio-api", cfg.Auth.JWT.Issuer)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("PORTFOLIO_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("PORTFOLIO_SERVER_PORT", "9200")
	t.Setenv("PORTFOLIO_DATABASE_DRIVER", "postgres")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "env-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 9200, cfg.Server.Port)
	require.Equal(t, "postgres", cfg.Database.Driver)
}

func TestConfigValidate(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Error(t, cfg.Validate()) // missing JWT secret

	cfg.Auth.JWT.Secret = "s3cret"
	require.NoError(t, cfg.Validate())

	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())
}
