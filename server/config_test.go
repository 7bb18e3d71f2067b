package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoadWritesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "server_config.json")
	cfg := NewConfig(path)
	require.NoError(t, cfg.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]any
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, "8000", onDisk["port"])
	assert.NotContains(t, string(data), "ark_api_key")
	assert.Equal(t, "localhost:8000", cfg.Addr())
}

func TestConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port":"9000","ark_model":"from-file"}`), 0644))
	t.Setenv("PORT", "9100")
	t.Setenv("ARK_MODEL", "")
	t.Setenv("ARK_API_KEY", "secret")
	t.Setenv("ARK_ACCESS_KEY", "")
	t.Setenv("ARK_SECRET_KEY", "")

	cfg := NewConfig(path)
	require.NoError(t, cfg.Load())
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "from-file", cfg.ArkModel)
	assert.True(t, cfg.AIEnabled())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

func TestConfigTimeout(t *testing.T) {
	cfg := NewConfig(filepath.Join(t.TempDir(), "c.json"))
	assert.Equal(t, 60*time.Second, cfg.Timeout())
	cfg.ResponderTimeout = "5s"
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	cfg.ResponderTimeout = "soon"
	assert.Equal(t, 60*time.Second, cfg.Timeout())
}

func TestConfigBans(t *testing.T) {
	cfg := NewConfig(filepath.Join(t.TempDir(), "c.json"))
	require.NoError(t, cfg.Ban("Mallory"))
	require.NoError(t, cfg.Ban("mallory"))
	assert.Len(t, cfg.BannedUsernames, 1)
	assert.True(t, cfg.IsBanned("MALLORY"))

	require.NoError(t, cfg.Unban("mallory"))
	assert.False(t, cfg.IsBanned("Mallory"))
}
