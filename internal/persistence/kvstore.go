// Package persistence implements the agent's durable local state: the
// previous session id and the last-applied access token, both handed
// back to the cloud/session engine on reconnect (spec.md §6 "Persisted
// state"). The load/save shape is grounded on the teacher's
// APIKeyManager load/save pair (internal/security/api_key_manager.go),
// narrowed from a JSON key store to a flat string-to-string map.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/camerarecorder/cloud-agent-go/internal/logging"
)

// KVStore is the minimal persistence surface the agent needs: durable
// string key/value pairs, survivable across process restarts.
type KVStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// FileKVStore is a KVStore backed by a single JSON file, written with
// the teacher's config-loader atomic-rename pattern (write to a temp
// file in the same directory, then rename over the target) so a crash
// mid-write never corrupts the previously persisted values.
type FileKVStore struct {
	path   string
	logger *logging.Logger

	mu     sync.Mutex
	values map[string]string
	loaded bool
}

// NewFileKVStore builds a store backed by path. The file need not exist
// yet; Get returns ("", false) for every key until the first Set.
func NewFileKVStore(path string, logger *logging.Logger) *FileKVStore {
	if logger == nil {
		logger = logging.GetLogger("persistence")
	}
	return &FileKVStore{path: path, logger: logger}
}

func (s *FileKVStore) ensureLoaded() {
	if s.loaded {
		return
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithFields(logging.Fields{"error": err}).Warn("failed to read persisted agent state")
		}
		s.values = make(map[string]string)
		return
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		s.logger.WithFields(logging.Fields{"error": err}).Warn("persisted agent state is corrupt, ignoring")
		s.values = make(map[string]string)
		return
	}
	s.values = values
}

// Get returns the persisted value for key, if any.
func (s *FileKVStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	v, ok := s.values[key]
	return v, ok
}

// Set persists key=value, replacing whatever was stored before for that
// key. A value of "" removes the key, so Clear-style callers don't leave
// a trail of empty-string entries on disk.
func (s *FileKVStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	if value == "" {
		delete(s.values, key)
	} else {
		s.values[key] = value
	}

	data, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("persistence: marshal agent state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("persistence: create state dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("persistence: write temp state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("persistence: rename state file into place: %w", err)
	}
	return nil
}
