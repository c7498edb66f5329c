package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfusion/docfusion/docfusion"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Backend)
	assert.Equal(t, "documents", cfg.Database.Table)
	assert.Equal(t, int32(10), cfg.Database.MaxConnections)
	assert.Equal(t, int32(1), cfg.Database.MinConnections)
	assert.Equal(t, 30*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 600*time.Second, cfg.Database.IdleTimeout)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 100, cfg.Cache.MaxSize)
	assert.Equal(t, docfusion.DefaultCacheMaxRows, cfg.Cache.MaxRows)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, `
database:
  backend: postgres
  host: db.internal
  port: 6543
  user: app
  name: docs
  connect_timeout: 5s
server:
  port: 9000
cache:
  ttl: 30s
  max_size: 7
`)
	t.Setenv("DOCFUSION_SERVER_PORT", "9100")
	t.Setenv("DOCFUSION_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Backend)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 7, cfg.Cache.MaxSize)
	assert.Equal(t, "postgres://app@db.internal:6543/docs", cfg.Database.ConnectionString())
}

func TestLoad_DatabaseURLAndAPIKey(t *testing.T) {
	t.Setenv("DOCFUSION_DATABASE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@h:5432/d")
	t.Setenv("API_KEY", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h:5432/d", cfg.Database.ConnectionString())
	assert.True(t, cfg.Auth.Enabled, "an api key enables auth")
	assert.Equal(t, "secret", cfg.Auth.APIKey)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, docfusion.IsKind(err, docfusion.ErrConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown backend", func(c *Config) { c.Database.Backend = "mysql" }, "database.backend"},
		{"bad table", func(c *Config) { c.Database.Table = "docs; drop" }, "database.table"},
		{"empty sqlite path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"no max conns", func(c *Config) { c.Database.MaxConnections = 0 }, "database.max_connections"},
		{"min above max", func(c *Config) { c.Database.MinConnections = 20 }, "database.min_connections"},
		{"port range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"auth without key", func(c *Config) { c.Auth.Enabled = true }, "auth.api_key"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var e *docfusion.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, docfusion.ErrConfig, e.Kind)
			assert.Equal(t, tt.field, e.Field)
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docfusion.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	err = WriteDefault(path)
	require.Error(t, err, "existing file is not overwritten")
}
