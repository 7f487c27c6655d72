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

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scanlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":5000", cfg.Listen)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 10, cfg.HistoryLimit)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database: /var/lib/scanlog/scan.db
listen: 127.0.0.1:8080
page_size: 50
shutdown_timeout: 10s
log:
  level: debug
  format: text
http:
  read_timeout: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/scanlog/scan.db", cfg.Database)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.HTTP.WriteTimeout, "unset keys keep defaults")
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "databse: typo.db\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "databse")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "database: from-file.db\npage_size: 50\n")
	t.Setenv("SCANLOG_DATABASE", "from-env.db")
	t.Setenv("SCANLOG_HISTORY_LIMIT", "25")
	t.Setenv("SCANLOG_HTTP_IDLE_TIMEOUT", "1m")
	t.Setenv("SCANLOG_LOG_LEVEL", "ERROR")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, time.Minute, cfg.HTTP.IdleTimeout)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_BadEnv(t *testing.T) {
	tests := []struct {
		key, val string
	}{
		{"SCANLOG_PAGE_SIZE", "many"},
		{"SCANLOG_SHUTDOWN_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty database", func(c *Config) { c.Database = "" }},
		{"listen without port", func(c *Config) { c.Listen = "localhost" }},
		{"zero page size", func(c *Config) { c.PageSize = 0 }},
		{"huge history", func(c *Config) { c.HistoryLimit = 5000 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"negative timeout", func(c *Config) { c.HTTP.ReadTimeout = -time.Second }},
		{"zero shutdown", func(c *Config) { c.ShutdownTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := Default()
	cfg.Log.Level = "warn"
	cfg.Log.Format = "text"

	var buf bytes.Buffer
	logger := SetupLogger(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "k=v")

	buf.Reset()
	cfg.Log.Format = "json"
	SetupLogger(cfg, &buf).Error("boom")
	assert.Contains(t, buf.String(), `"msg":"boom"`)
}
