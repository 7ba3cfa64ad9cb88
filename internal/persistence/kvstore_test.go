package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKVStore_GetMissingKeyReturnsFalse(t *testing.T) {
	s := NewFileKVStore(filepath.Join(t.TempDir(), "state.json"), nil)
	_, ok := s.Get("nope")
	assert.False(t, ok)
}

func TestFileKVStore_SetThenGetRoundTrips(t *testing.T) {
	s := NewFileKVStore(filepath.Join(t.TempDir(), "nested", "state.json"), nil)
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))

	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	v, ok = s.Get("b")
	require.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestFileKVStore_SetEmptyValueDeletesKey(t *testing.T) {
	s := NewFileKVStore(filepath.Join(t.TempDir(), "state.json"), nil)
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("a", ""))
	_, ok := s.Get("a")
	assert.False(t, ok)
}

func TestFileKVStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	first := NewFileKVStore(path, nil)
	require.NoError(t, first.Set("k", "v"))

	second := NewFileKVStore(path, nil)
	v, ok := second.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}
