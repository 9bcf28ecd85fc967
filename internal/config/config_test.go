package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ATELIER_CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "atelier.db", cfg.DB.Path)
	assert.Equal(t, BackendDir, cfg.Storage.Backend)
	assert.Equal(t, RelayFile, cfg.Remote.Relay)
	assert.Equal(t, 10, cfg.Tracking.MaxItems)
	assert.True(t, cfg.Auth.Enabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atelier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
storage:
  backend: sqlite
  sqlite: /tmp/session.db
remote:
  base_url: http://mirror.local
  timeout: 2s
`), 0o644))

	t.Setenv("ATELIER_CONFIG_PATH", path)
	t.Setenv("ATELIER_SERVER_PORT", "9100")
	t.Setenv("ATELIER_REMOTE_RELAY", "socket")
	t.Setenv("ATELIER_AUTH_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/session.db", cfg.Storage.SQLite)
	assert.Equal(t, "http://mirror.local", cfg.Remote.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, RelaySocket, cfg.Remote.Relay)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("ATELIER_CONFIG_PATH", "")
	t.Setenv("ATELIER_SERVER_PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("ATELIER_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Storage.Backend = "s3"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Remote.Relay = "pigeon"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Tracking.MaxItems = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Tracking.MaxItems = 11
	assert.Error(t, bad.Validate())
}
