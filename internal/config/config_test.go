package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadMissingFileFallsBackToDefaults(t *testing.T) {
	l := NewLoader()
	cfg, err := l.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Device.Vendor, cfg.Device.Vendor)
	assert.Equal(t, "/etc/cloud-agent/token", cfg.Token.FilePath)
}

func TestLoader_LoadOverridesDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
device:
  vendor: acme
  model: cam-1
token:
  file_path: /tmp/token
  watch: false
`), 0o600))

	l := NewLoader()
	cfg, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Device.Vendor)
	assert.Equal(t, "cam-1", cfg.Device.Model)
	assert.Equal(t, "/tmp/token", cfg.Token.FilePath)
	assert.False(t, cfg.Token.Watch)
	// Untouched sections still carry their defaults.
	assert.Equal(t, DefaultConfig().Sync.RetryMaxAttempts, cfg.Sync.RetryMaxAttempts)
}

func TestLoader_LoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
behaviour:
  max_concurrent_video_uploads: 0
`), 0o600))

	l := NewLoader()
	_, err := l.Load(path)
	assert.Error(t, err)
}

func TestValidate_CatchesEachSection(t *testing.T) {
	base := DefaultConfig()

	withBadHealthPort := *base
	withBadHealthPort.Health.Enabled = true
	withBadHealthPort.Health.Port = 0
	assert.Error(t, Validate(&withBadHealthPort))

	withBadLogging := *base
	withBadLogging.Logging.Level = "verbose"
	assert.Error(t, Validate(&withBadLogging))

	withBadTransport := *base
	withBadTransport.Transport.PongWait = withBadTransport.Transport.PingInterval
	assert.Error(t, Validate(&withBadTransport))

	assert.NoError(t, Validate(base))
}

func TestManager_WatchTokenFileNoopWhenDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
token:
  file_path: /tmp/does-not-matter
  watch: false
`), 0o600))

	m, err := NewManager(path, nil)
	require.NoError(t, err)
	defer m.Close()

	called := false
	require.NoError(t, m.WatchTokenFile(func() { called = true }))
	assert.False(t, called)
}

func TestManager_WatchTokenFileFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("initial"), 0o600))

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
token:
  file_path: `+tokenPath+`
  watch: true
`), 0o600))

	m, err := NewManager(configPath, nil)
	require.NoError(t, err)
	defer m.Close()

	fired := make(chan struct{}, 1)
	require.NoError(t, m.WatchTokenFile(func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}))

	require.NoError(t, os.WriteFile(tokenPath, []byte("rotated"), 0o600))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("token change callback did not fire")
	}
}
