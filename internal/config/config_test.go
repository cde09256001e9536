package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir()) // no config file

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.wordtrail.app", cfg.BaseURL)
	assert.Empty(t, cfg.DBPath)
	assert.Empty(t, cfg.AuthToken)
	assert.Equal(t, 5*time.Second, cfg.SyncInterval)
	assert.Equal(t, 2*time.Second, cfg.BackoffInitial)
	assert.Equal(t, 2*time.Minute, cfg.BackoffMax)
	assert.Equal(t, 2.0, cfg.BackoffMultiplier)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 7*24*time.Hour, cfg.ShortTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.LongTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("WORDTRAIL_BASE_URL", "http://localhost:8080")
	t.Setenv("WORDTRAIL_AUTH_TOKEN", "tok-abc")
	t.Setenv("WORDTRAIL_SYNC_INTERVAL", "10s")
	t.Setenv("WORDTRAIL_RETRY_ATTEMPTS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "tok-abc", cfg.AuthToken)
	assert.Equal(t, 10*time.Second, cfg.SyncInterval)
	assert.Equal(t, 5, cfg.RetryAttempts)
}

func TestLoadConfigFile(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, "wordtrail")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	toml := `base_url = "https://staging.wordtrail.app"
sync_interval = "30s"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "syncore.toml"), []byte(toml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://staging.wordtrail.app", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.RetryAttempts)
}

func TestLoadEnvBeatsConfigFile(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, "wordtrail")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "syncore.toml"),
		[]byte(`base_url = "https://from-file"`+"\n"), 0o644))

	t.Setenv("WORDTRAIL_BASE_URL", "https://from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://from-env", cfg.BaseURL)
}

func TestLoadMalformedConfigFileErrors(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, "wordtrail")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "syncore.toml"),
		[]byte("this is = not [valid toml"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}
