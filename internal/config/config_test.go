package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ADDR", "PROVIDER_TIMEOUT", "PRICE_VENDORS", "LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.ProviderTimeout)
	assert.Empty(t, cfg.PriceVendors)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "2500ms")
	t.Setenv("PRICE_VENDORS", " rebuy, momox ,,")
	t.Setenv("PRICE_SCRAPER_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("RATE_LIMIT_BURST", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2500*time.Millisecond, cfg.ProviderTimeout)
	assert.Equal(t, []string{"rebuy", "momox"}, cfg.PriceVendors)
	assert.True(t, cfg.PriceScraperEnabled)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 7, cfg.RateLimitBurst)
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	tests := map[string]string{
		"PROVIDER_TIMEOUT":      "five seconds",
		"RATE_LIMIT_BURST":      "many",
		"PRICE_SCRAPER_ENABLED": "maybe",
		"LOG_FORMAT":            "xml",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_RejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "0s")

	_, err := Load()
	assert.ErrorContains(t, err, "PROVIDER_TIMEOUT")
}

func TestLoadEnvFiles_DoesNotOverrideExistingEnv(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".env"), []byte("DB_DSN=from_file\nUSER_AGENT=from_file\n"), 0o644))

	t.Setenv("DB_DSN", "from_env")
	t.Setenv("USER_AGENT", "")
	require.NoError(t, os.Unsetenv("USER_AGENT"))

	cwd, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	LoadEnvFiles()

	assert.Equal(t, "from_env", os.Getenv("DB_DSN"))
	assert.Equal(t, "from_file", os.Getenv("USER_AGENT"))
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	Config{LogFormat: "json", LogLevel: slog.LevelInfo}.NewLogger(&buf).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	Config{LogFormat: "text", LogLevel: slog.LevelWarn}.NewLogger(&buf).Info("hidden")
	assert.Empty(t, buf.String())
}
