package app

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "sysdba:masterkey@localhost:3050/var/lib/firebird/data/erp.fdb")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "firebirdsql", cfg.DBDriver)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 512, cfg.CacheSize)
	assert.Equal(t, int64(4240340), cfg.LegalCostCenter)
	assert.Equal(t, []int64{32, 33}, cfg.ExcludedAccountIDs)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.GotenbergURL)
	assert.False(t, cfg.IsProduction())

	rc, err := cfg.Analytics()
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", rc.Location.String())
	assert.Equal(t, 5, rc.OverdueGraceDays)
	assert.Equal(t, []int64{32, 33}, rc.ExcludedAccountIDs)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://replica/erp")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("EXCLUDED_ACCOUNT_IDS", "7")
	t.Setenv("OVERDUE_GRACE_DAYS", "0")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("APP_ENV", "production")
	t.Setenv("GOTENBERG_URL", "http://gotenberg:3000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())

	rc, err := cfg.Analytics()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, rc.Location)
	assert.Equal(t, 0, rc.OverdueGraceDays)
	assert.Equal(t, []int64{7}, rc.ExcludedAccountIDs)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing dsn":  {},
		"bad driver":   {"DB_DSN": "x", "DB_DRIVER": "mysql"},
		"bad timezone": {"DB_DSN": "x", "TIMEZONE": "Mars/Olympus"},
		"bad ttl":      {"DB_DSN": "x", "CACHE_TTL": "0s"},
		"bad format":   {"DB_DSN": "x", "LOG_FORMAT": "xml"},
		"bad pdf url":  {"DB_DSN": "x", "GOTENBERG_URL": "not a url"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DB_DSN", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestNilConfigAnalyticsDefaults(t *testing.T) {
	var cfg *Config
	rc, err := cfg.Analytics()
	require.NoError(t, err)
	assert.Equal(t, int64(4240340), rc.LegalCostCenter)
	assert.False(t, cfg.IsProduction())
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(testModeEnv, "true")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "nope")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

func TestLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn", AppEnv: "staging"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.Int("pages", 3))

	line := buf.String()
	assert.NotContains(t, line, "hidden")
	assert.Contains(t, line, `"msg":"shown"`)
	assert.Contains(t, line, `"service":"findash"`)
	assert.Contains(t, line, `"env":"staging"`)
	assert.Contains(t, line, `"pages":3`)
}
