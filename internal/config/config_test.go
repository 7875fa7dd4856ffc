package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func TestInitializeAndLoad(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := Initialize("http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.SearchURL)
	assert.Equal(t, filepath.Join(dir, VaultDir, DatabaseFile), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(dir, VaultDir, AuditFile), cfg.AuditPath())

	// Double init fails
	_, err = Initialize("")
	assert.Error(t, err)

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.SearchURL, loaded.SearchURL)
	assert.Equal(t, cfg.VaultPath(), loaded.VaultPath())
}

func TestLoad_FromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	_, err := Initialize("")
	require.NoError(t, err)

	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0755))
	chdir(t, sub)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, VaultDir), cfg.VaultPath())
}

func TestLoad_NoVault(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := Initialize("")
	require.NoError(t, err)

	cfg.SearchURL = "http://weaviate:8080"
	cfg.AckExpiryDays = 180
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://weaviate:8080", loaded.SearchURL)
	assert.Equal(t, 180, loaded.AckExpiryDays)
}
