package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 30, cfg.Archive.RetentionDays)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swarmcore.yaml")
	content := []byte("data_dir: /var/lib/swarmcore\narchive:\n  retention_days: 14\n")
	require.NoError(t, os.WriteFile(path, content, 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/swarmcore", cfg.DataDir)
	assert.Equal(t, 14, cfg.Archive.RetentionDays)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "/env/data")
	t.Setenv("CORE_API_URL", "http://core-api:9090")
	dir := t.TempDir()
	path := filepath.Join(dir, "swarmcore.yaml")
	content := []byte("data_dir: /file/data\ncore_api_url: http://file:9090\n")
	require.NoError(t, os.WriteFile(path, content, 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/env/data", cfg.DataDir)
	assert.Equal(t, "http://core-api:9090", cfg.CoreAPI)
}

func TestLoad_RejectsNonPositiveRetention(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swarmcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("archive:\n  retention_days: 0\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}
