package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config.yaml present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cnefe-cache.db", cfg.Cache.Path)
	assert.Equal(t, 3, cfg.Provider.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Provider.InitialBackoff)
	assert.Equal(t, 4, cfg.Reconcile.Workers)
	assert.InDelta(t, 0.9, cfg.Reconcile.FuzzyThreshold, 1e-9)
	assert.Equal(t, 2, cfg.Load.Concurrency)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
cache:
  path: /var/lib/cnefe/cache.db
provider:
  database_url: postgres://localhost/osm
  rate_limit_qps: 50
reconcile:
  workers: 12
  fuzzy_threshold: 0.85
log:
  level: debug
  format: console
`)
	require.NoError(t, os.WriteFile(dir+"/config.yaml", yaml, 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/cnefe/cache.db", cfg.Cache.Path)
	assert.Equal(t, "postgres://localhost/osm", cfg.Provider.DatabaseURL)
	assert.InDelta(t, 50.0, cfg.Provider.RateLimitQPS, 1e-9)
	assert.Equal(t, 12, cfg.Reconcile.Workers)
	assert.InDelta(t, 0.85, cfg.Reconcile.FuzzyThreshold, 1e-9)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CNEFE_RECONCILE_WORKERS", "16")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Reconcile.Workers)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/config.yaml", []byte("cache: ["), 0o644))
	chdir(t, dir)

	_, err := Load()
	require.Error(t, err)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shout", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
