package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdfvault/revengine/internal/config"
	"github.com/rdfvault/revengine/internal/engine"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQLite, cfg.Backend)
	assert.Equal(t, engine.DefaultSNAPF, cfg.SNAPF)
	assert.Equal(t, 500, cfg.IndexPageSize)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQLite, cfg.Backend)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "storage-backend: mysql\ndsn: user:pass@tcp(localhost:3306)/revengine\nsnapshot-factor: 5.0\nindex-page-size: 100\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.BackendMySQL, cfg.Backend)
	assert.Equal(t, "user:pass@tcp(localhost:3306)/revengine", cfg.DSN)
	assert.Equal(t, 5.0, cfg.SNAPF)
	assert.Equal(t, 100, cfg.IndexPageSize)
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "storage-backend: mysql\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("REVENGINE_BACKEND", "memory")
	t.Setenv("REVENGINE_SNAPF", "3.5")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.Backend, "env var must take precedence over the yaml file")
	assert.Equal(t, 3.5, cfg.SNAPF)
}
