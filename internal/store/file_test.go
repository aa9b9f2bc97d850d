package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)
	return s
}

func TestFileStore_RoundTrip(t *testing.T) {
	s := newTestFileStore(t)

	type settings struct {
		APIURL string `json:"apiUrl"`
		Model  string `json:"model"`
	}

	err := s.Set(KeyAppSettings, settings{APIURL: "https://api.example.com", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	var got settings
	found, err := s.Get(KeyAppSettings, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "https://api.example.com", got.APIURL)
	assert.Equal(t, "gpt-4o-mini", got.Model)
}

func TestFileStore_MissingKey(t *testing.T) {
	s := newTestFileStore(t)

	var v []string
	found, err := s.Get(KeyFolders, &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStore_CorruptBlobDiscarded(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)

	// Plant a blob that is not valid JSON.
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyIngredients+".json"), []byte("{not json"), 0o644))

	var v []string
	found, err := s.Get(KeyIngredients, &v)
	require.NoError(t, err, "a corrupt blob must never be fatal")
	assert.False(t, found)
}

func TestFileStore_OverwriteReplacesBlob(t *testing.T) {
	s := newTestFileStore(t)

	require.NoError(t, s.Set(KeyFolders, []string{"默认清单", "快手菜"}))
	require.NoError(t, s.Set(KeyFolders, []string{"默认清单"}))

	var got []string
	found, err := s.Get(KeyFolders, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"默认清单"}, got)
}

func TestMemoryStore_CorruptRawDiscarded(t *testing.T) {
	s := NewMemoryStore()
	s.SetRaw(KeySavedRecipes, []byte("]["))

	var v []string
	found, err := s.Get(KeySavedRecipes, &v)
	require.NoError(t, err)
	assert.False(t, found)
}
