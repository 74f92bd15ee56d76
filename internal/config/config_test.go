package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5050", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5.0, cfg.Feed.RatePerSecond)
	assert.Equal(t, 10, cfg.Feed.Burst)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("FEED_BURST", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 3, cfg.Feed.Burst)
}

func TestLoad_YAMLFileWithEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
environment: production
auth:
  issuer: https://idp.example.com/
feed:
  rate_per_second: 2
  burst: 4
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100") // env wins over file

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "https://idp.example.com/", cfg.Auth.Issuer)
	assert.Equal(t, 2.0, cfg.Feed.RatePerSecond)
	assert.Equal(t, 4, cfg.Feed.Burst)
}

func TestLoad_InvalidFeedBurst(t *testing.T) {
	t.Setenv("FEED_BURST", "zero")

	_, err := Load()
	assert.Error(t, err)
}
