package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves into an empty directory so no stray .env file is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(originalDir) })

	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Upstream.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.Upstream.Timeout)
	assert.False(t, cfg.Upstream.BreakerEnabled)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "ping", cfg.Server.PingMessage)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)

	t.Setenv("API_BASE_URL", "http://analytics.internal:9000/")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("UPSTREAM_BREAKER_ENABLED", "true")
	t.Setenv("PORT", "3000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://dash.example.com")
	t.Setenv("PING_MESSAGE", "pong")
	t.Setenv("LOG_FORMAT", "CONSOLE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://analytics.internal:9000", cfg.Upstream.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.True(t, cfg.Upstream.BreakerEnabled)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, []string{"http://localhost:5173", "https://dash.example.com"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "pong", cfg.Server.PingMessage)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("API_BASE_URL=http://from-dotenv:8000\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("API_BASE_URL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://from-dotenv:8000", cfg.Upstream.BaseURL)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := chdirTemp(t)

	path := filepath.Join(dir, "gateway.yaml")
	yamlData := `
upstream:
  base_url: http://yaml-upstream:8000
  breaker_enabled: true
server:
  port: "9090"
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://yaml-upstream:8000", cfg.Upstream.BaseURL)
	assert.True(t, cfg.Upstream.BreakerEnabled)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset keys keep their defaults
	assert.Equal(t, "ping", cfg.Server.PingMessage)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-url base", "API_BASE_URL", "not a url"},
		{"bad timeout", "UPSTREAM_TIMEOUT", "soon"},
		{"bad bool", "UPSTREAM_BREAKER_ENABLED", "maybe"},
		{"non-numeric port", "PORT", "http"},
		{"unknown log format", "LOG_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
