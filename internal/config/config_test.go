// ABOUTME: Tests for YAML configuration loading, defaults, and validation.
// ABOUTME: Covers environment variable expansion and derived addresses.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "odoo-bridge.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
  public_url: https://bridge.example
database:
  path: /var/lib/odoo-bridge/state.db
logging:
  level: debug
  format: json
metrics:
  enabled: true
  path: /metrics
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "/var/lib/odoo-bridge/state.db", cfg.Database.Path)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.True(t, cfg.Metrics.Enabled)
	})

	t.Run("partial config keeps defaults", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9000
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, "odoo-bridge.db", cfg.Database.Path)
	})

	t.Run("expands environment variables", func(t *testing.T) {
		t.Setenv("BRIDGE_DB_PATH", "/tmp/bridge.db")
		path := writeConfig(t, `
database:
  path: ${BRIDGE_DB_PATH}
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/bridge.db", cfg.Database.Path)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load("/nonexistent/config.yaml")
		assert.Error(t, err)
	})

	t.Run("malformed YAML", func(t *testing.T) {
		path := writeConfig(t, "server: [not a map")
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("rejects bad port", func(t *testing.T) {
		cfg := Default()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())

		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects empty host", func(t *testing.T) {
		cfg := Default()
		cfg.Server.Host = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects empty database path", func(t *testing.T) {
		cfg := Default()
		cfg.Database.Path = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("metrics path required when enabled", func(t *testing.T) {
		cfg := Default()
		cfg.Metrics.Enabled = true
		cfg.Metrics.Path = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestDerivedAddresses(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9000

	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr())
	assert.Equal(t, "http://127.0.0.1:9000", cfg.ResolvedPublicURL())

	cfg.Server.PublicURL = "https://bridge.example"
	assert.Equal(t, "https://bridge.example", cfg.ResolvedPublicURL())
}
