package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 7400, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Cache.NodeCapacity)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SKULD_STORAGE_BACKEND", "badger")
	t.Setenv("SKULD_DATA_DIR", "/tmp/skuld-test")
	t.Setenv("SKULD_HTTP_PORT", "9000")
	t.Setenv("SKULD_SYNC_WRITES", "true")
	t.Setenv("SKULD_NODE_CACHE_SIZE", "50")

	cfg := LoadFromEnv()
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/skuld-test", cfg.Storage.DataDir)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Storage.SyncWrites)
	assert.Equal(t, 50, cfg.Cache.NodeCapacity)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skuld.yaml")
	data := []byte(`
storage:
  backend: badger
  dataDir: /var/lib/skuld
server:
  port: 8080
cache:
  nodeCapacity: 250
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/skuld", cfg.Storage.DataDir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 250, cfg.Cache.NodeCapacity)
	// Untouched fields keep defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skuld.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600))
	t.Setenv("SKULD_HTTP_PORT", "9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing_file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed_yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("unknown_backend", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Backend = "postgres"
		assert.Error(t, cfg.Validate())
	})

	t.Run("badger_requires_data_dir", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Backend = BackendBadger
		cfg.Storage.DataDir = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad_port", func(t *testing.T) {
		cfg := Default()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad_cache_size", func(t *testing.T) {
		cfg := Default()
		cfg.Cache.NodeCapacity = -1
		assert.Error(t, cfg.Validate())
	})
}

func TestStringHidesToken(t *testing.T) {
	cfg := Default()
	cfg.Server.AuthToken = "very-secret"
	assert.NotContains(t, cfg.String(), "very-secret")
	assert.Contains(t, cfg.String(), "Auth: on")
}
