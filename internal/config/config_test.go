package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  listen_addr: ":9443"
hardware:
  enable_aesni: false
  enable_armv8_aes: true
registry:
  allowed_algorithms:
    - "aes*-cbc"
key_manager:
  provider: static
  static:
    keys:
      k1: AAAAAAAAAAAAAAAAAAAAAA==
audit:
  enabled: true
  max_events: 500
  sink:
    type: stdout
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoaderReadsInitialConfig(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	l, err := NewLoader(path)
	require.NoError(t, err)

	cfg := l.Current()
	assert.Equal(t, ":9443", cfg.Server.ListenAddr)
	assert.False(t, cfg.Hardware.EnableAESNI)
	assert.True(t, cfg.Hardware.EnableARMv8AES)
	assert.Equal(t, []string{"aes*-cbc"}, cfg.Registry.AllowedAlgorithms)
	assert.Equal(t, "static", cfg.KeyManager.Provider)
	assert.Equal(t, 500, cfg.Audit.MaxEvents)
}

func TestLoaderAppliesDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, "server:\n  listen_addr: \":1\"\n")
	l, err := NewLoader(path)
	require.NoError(t, err)

	cfg := l.Current()
	assert.Equal(t, "stdout", cfg.Audit.Sink.Type)
	assert.Equal(t, 1000, cfg.Audit.MaxEvents)
}

func TestLoaderReloadNotifiesSubscribers(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	l, err := NewLoader(path)
	require.NoError(t, err)

	notified := make(chan Config, 1)
	l.OnChange(func(cfg Config) { notified <- cfg })

	require.NoError(t, os.WriteFile(path, []byte(sampleConfig+"\n# touch\n"), 0o600))
	require.NoError(t, l.reload())

	select {
	case cfg := <-notified:
		assert.Equal(t, ":9443", cfg.Server.ListenAddr)
	case <-time.After(time.Second):
		t.Fatal("subscriber was not notified of reload")
	}
}

func TestLoaderMissingFileFails(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
