package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// TokenChangeFunc is invoked when the watched access-token file changes on
// disk, so the caller can drive a clean reconnect cycle (SPEC_FULL.md
// "Supplemented features").
type TokenChangeFunc func()

// Manager owns the process's live Config behind an atomic pointer so
// readers never observe a half-updated struct, following the teacher's
// ConfigManager.currentConfig idiom (internal/config/config_manager.go).
type Manager struct {
	loader  *Loader
	current atomic.Pointer[Config]
	watcher *fsnotify.Watcher
	log     *logrus.Entry
}

// NewManager loads configPath once and returns a Manager ready to serve
// GetConfig and, optionally, watch the token file for rotation.
func NewManager(configPath string, log *logrus.Entry) (*Manager, error) {
	loader := NewLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		return nil, err
	}
	m := &Manager{loader: loader, log: log}
	m.current.Store(cfg)
	return m, nil
}

// GetConfig returns the currently active configuration. The returned
// pointer must be treated as read-only by callers.
func (m *Manager) GetConfig() *Config {
	return m.current.Load()
}

// WatchTokenFile starts an fsnotify watch on cfg.Token.FilePath and invokes
// onChange whenever the file is written or replaced (editors commonly
// rename-over-write, which fsnotify reports as Create on the target path).
// It is a no-op when cfg.Token.Watch is false.
func (m *Manager) WatchTokenFile(onChange TokenChangeFunc) error {
	cfg := m.GetConfig()
	if !cfg.Token.Watch {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(cfg.Token.FilePath); err != nil {
		_ = w.Close()
		return err
	}
	m.watcher = w

	go m.watchLoop(onChange)
	return nil
}

func (m *Manager) watchLoop(onChange TokenChangeFunc) {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if m.log != nil {
					m.log.WithField("file", event.Name).Info("access token file changed, triggering reconnect")
				}
				onChange()
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			if m.log != nil {
				m.log.WithError(err).Warn("token file watcher error")
			}
		}
	}
}

// Close stops the token-file watcher, if any.
func (m *Manager) Close() error {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Close()
}
