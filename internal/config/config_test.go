package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, NetworkTCP, cfg.Network)
	assert.Equal(t, 10, cfg.Server.Backlog)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "echo.yaml")
	data := `
network: udp
logLevel: debug
server:
  listen: "[::1]:9000"
  reusePort: true
client:
  remote: "[::1]:9000"
  retry:
    maxAttempts: 3
    initialInterval: 50ms
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, NetworkUDP, cfg.Network)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "[::1]:9000", cfg.Server.Listen)
	assert.True(t, cfg.Server.ReusePort)
	assert.True(t, cfg.Server.ReuseAddr, "default kept")
	assert.Equal(t, 3, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Client.Retry.InitialInterval)
	assert.Equal(t, 2*time.Second, cfg.Client.Retry.MaxInterval)
	assert.Equal(t, "hello", cfg.Client.Message)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse(nil, &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	cfg := Default()
	err := Parse([]byte("netwrok: tcp\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode config")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Network = "sctp"
	cfg.LogLevel = "loud"
	cfg.Server.Listen = "nowhere"
	cfg.Client.Retry.MaxAttempts = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{"network", "logLevel", "server.listen", "maxAttempts"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
