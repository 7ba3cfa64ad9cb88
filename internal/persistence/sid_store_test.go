package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidStore_LoadMissingFileReturnsEmpty(t *testing.T) {
	s := NewSidStore(filepath.Join(t.TempDir(), "state.json"), nil)
	assert.Equal(t, "", s.Load())
}

func TestSidStore_SaveThenLoadRoundTrips(t *testing.T) {
	s := NewSidStore(filepath.Join(t.TempDir(), "nested", "state.json"), nil)
	require.NoError(t, s.Save("sid-123"))
	assert.Equal(t, "sid-123", s.Load())
}

func TestSidStore_ClearRemovesPrevSid(t *testing.T) {
	s := NewSidStore(filepath.Join(t.TempDir(), "state.json"), nil)
	require.NoError(t, s.Save("sid-123"))
	require.NoError(t, s.Clear())
	assert.Equal(t, "", s.Load())
}

func TestSidStore_AccessTokenRoundTripsIndependentlyOfPrevSid(t *testing.T) {
	s := NewSidStore(filepath.Join(t.TempDir(), "state.json"), nil)
	require.NoError(t, s.Save("sid-123"))
	require.NoError(t, s.SaveAccessToken("raw-token"))

	assert.Equal(t, "sid-123", s.Load())
	assert.Equal(t, "raw-token", s.LoadAccessToken())

	require.NoError(t, s.Clear())
	assert.Equal(t, "", s.Load())
	assert.Equal(t, "raw-token", s.LoadAccessToken())
}
