package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "./histore-data", cfg.Archive.RootDir)
	assert.Equal(t, "badger", cfg.Archive.StoreKind)
	assert.True(t, cfg.Archive.CompressRows)

	assert.Equal(t, int64(16*1024*1024), cfg.ExternalSort.BufferSizeBytes)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfigEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMissingFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.Error(t, err)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "histore.json")
	data, err := json.Marshal(map[string]any{
		"archive": map[string]any{"store_kind": "volatile"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "volatile", cfg.Archive.StoreKind)
	// Unset fields keep their defaults.
	assert.Equal(t, int64(16*1024*1024), cfg.ExternalSort.BufferSizeBytes)
}

func TestLoadConfigRejectsInvalidStoreKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "histore.json")
	data, err := json.Marshal(map[string]any{
		"archive": map[string]any{"store_kind": "postgres"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsNonPositiveBufferSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "histore.json")
	data, err := json.Marshal(map[string]any{
		"external_sort": map[string]any{"buffer_size_bytes": 0},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = LoadConfig(path)
	require.Error(t, err)
}
