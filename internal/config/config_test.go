package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()

	keys := []string{
		"APP_ENV", "APP_SERVICE_NAME", "APP_HTTP_ADDR", "APP_LOG_LEVEL",
		"DB_URL", "DB_DISABLE_PREPARED_BINARY_RESULT", "CORS_ALLOWED_ORIGINS",
		"APP_READ_TIMEOUT", "APP_WRITE_TIMEOUT", "IMPORT_MAX_WORKERS",
		"PPROF_ENABLED", "UPTRACE_ENABLED", "UPTRACE_DSN", "PYROSCOPE_ENABLED",
		"ESPN_SEASON", "ESPN_MAX_RETRIES", "SLEEPER_SEASON", "SLEEPER_CATALOG_TTL",
		"YAHOO_CLIENT_ID", "YAHOO_CLIENT_SECRET",
		"IMPORT_WEBHOOK_ENABLED", "IMPORT_WEBHOOK_URL", "IMPORT_WEBHOOK_TOKEN",
		"SLEEPER_CIRCUIT_ENABLED", "SLEEPER_CIRCUIT_FAILURE_COUNT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, EnvDev, cfg.AppEnv)
	require.Equal(t, "leaguesync-api", cfg.ServiceName)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 10*time.Second, cfg.ReadTimeout)
	require.Equal(t, 120*time.Second, cfg.WriteTimeout)
	require.Equal(t, 2, cfg.ImportMaxWorkers)
	require.True(t, cfg.DBDisablePreparedBinary)

	require.False(t, cfg.PprofEnabled)
	require.False(t, cfg.UptraceEnabled)
	require.False(t, cfg.PyroscopeEnabled)
	require.False(t, cfg.WebhookEnabled)

	require.Equal(t, time.Now().Year(), cfg.ESPNSeason)
	require.Equal(t, 24*time.Hour, cfg.SleeperCatalogTTL)
	require.True(t, cfg.SleeperCircuitEnabled)
	require.Equal(t, 5, cfg.SleeperCircuitFailureCount)
	require.Equal(t, 15*time.Second, cfg.SleeperCircuitOpenTimeout)
	require.Equal(t, 2, cfg.SleeperCircuitHalfOpenMaxReq)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("APP_HTTP_ADDR", ":9000")
	t.Setenv("IMPORT_MAX_WORKERS", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("ESPN_SEASON", "2024")
	t.Setenv("SLEEPER_CIRCUIT_ENABLED", "false")
	t.Setenv("SLEEPER_CIRCUIT_FAILURE_COUNT", "9")
	t.Setenv("IMPORT_WEBHOOK_ENABLED", "true")
	t.Setenv("IMPORT_WEBHOOK_URL", "https://hooks.example.com/import")
	t.Setenv("IMPORT_WEBHOOK_TOKEN", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, EnvProd, cfg.AppEnv)
	require.Equal(t, ":9000", cfg.HTTPAddr)
	require.Equal(t, 4, cfg.ImportMaxWorkers)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 2024, cfg.ESPNSeason)
	require.False(t, cfg.SleeperCircuitEnabled)
	require.Equal(t, 9, cfg.SleeperCircuitFailureCount)
	require.True(t, cfg.WebhookEnabled)
	require.Equal(t, "https://hooks.example.com/import", cfg.WebhookURL)
	require.Equal(t, "secret", cfg.WebhookToken)
}

func TestLoad_InvalidAppEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_WorkerCountMustBePositive(t *testing.T) {
	clearEnv(t)
	t.Setenv("IMPORT_MAX_WORKERS", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_WebhookEnabledNeedsURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("IMPORT_WEBHOOK_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_UptraceEnabledNeedsDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPTRACE_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidSeason(t *testing.T) {
	clearEnv(t)
	t.Setenv("ESPN_SEASON", "99")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_READ_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}
