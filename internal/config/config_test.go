package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_WritesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OTRKEY_CONFIG_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	_, err = os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "catalog.db"), DBPath())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OTRKEY_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{
		"catalog_url": "https://example.com/catalog.zip",
		"workers": 2
	}`), 0o644))
	t.Setenv("OTRKEY_WORKERS", "3")
	t.Setenv("OTRKEY_REQUESTS_PER_SECOND", "1.5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://example.com/catalog.zip", cfg.CatalogURL)
	require.Equal(t, 3, cfg.Workers)
	require.InDelta(t, 1.5, cfg.RequestsPerSecond, 0.0001)
	require.Equal(t, DefaultConfig().MirrorsURL, cfg.MirrorsURL)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OTRKEY_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{not json`), 0o644))

	_, err := Load()
	require.Error(t, err)
}
