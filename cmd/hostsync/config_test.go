package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/hostsync/internal/config"
)

func TestConfigInit_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "hostsyncd.toml")

	out, err := runCLI(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Service, loaded.Service)
	assert.Equal(t, config.DefaultCallTimeout, loaded.Transport.CallTimeout.Duration())
	assert.Equal(t, config.DefaultClipTimeout, loaded.Clipboard.CommandTimeout.Duration())
}

func TestConfigInit_KeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostsyncd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0600))

	_, err := runCLI(t, "config", "init", "--config", path)
	assert.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug")

	_, err = runCLI(t, "config", "init", "--config", path, "--force")
	require.NoError(t, err)

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultLogLevel, loaded.Log.Level)
}

func TestConfigShow_PrintsEffectiveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostsyncd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[transport]\ncall_timeout = \"750ms\"\n"), 0600))

	out, err := runCLI(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "call_timeout")
	assert.Contains(t, out, (750 * time.Millisecond).String())
	assert.Contains(t, out, "command_timeout")
}
