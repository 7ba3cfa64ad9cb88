package persistence

import (
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
)

const (
	keyPrevSid     = "prev_sid"
	keyAccessToken = "access_token"
)

// SidStore is the agent's view onto its persisted state: the previous
// session id (for reconnect continuity, spec.md §6 "Persisted state")
// and the raw access token the agent was last started with, both kept
// in the same file-backed KVStore (spec.md §7 "bye{DELETED} purges
// prev_sid").
type SidStore struct {
	kv KVStore
}

// NewSidStore builds a store backed by a FileKVStore at path. The file
// need not exist yet; Load returns "" until the first Save.
func NewSidStore(path string, logger *logging.Logger) *SidStore {
	return &SidStore{kv: NewFileKVStore(path, logger)}
}

// Load returns the last persisted prev_sid, or "" if none was ever saved.
func (s *SidStore) Load() string {
	v, _ := s.kv.Get(keyPrevSid)
	return v
}

// Save persists sid, replacing whatever was stored before.
func (s *SidStore) Save(sid string) error {
	return s.kv.Set(keyPrevSid, sid)
}

// Clear removes the persisted prev_sid.
func (s *SidStore) Clear() error {
	return s.kv.Set(keyPrevSid, "")
}

// SaveAccessToken persists the raw access token the agent last parsed
// successfully, so the material surviving a restart matches what the
// session engine is actually using. It is never read back to skip
// re-parsing a freshly supplied token.
func (s *SidStore) SaveAccessToken(raw string) error {
	return s.kv.Set(keyAccessToken, raw)
}

// LoadAccessToken returns the last persisted raw access token, or ""
// if none was ever saved.
func (s *SidStore) LoadAccessToken() string {
	v, _ := s.kv.Get(keyAccessToken)
	return v
}
