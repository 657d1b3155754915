package pairing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	return s, dir
}

func TestStoreSetAndGetClientKey(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Empty(t, s.ClientKey("192.168.1.50"), "unknown host has no key")

	require.NoError(t, s.SetClientKey("192.168.1.50", "key-1"))
	assert.Equal(t, "key-1", s.ClientKey("192.168.1.50"))
	assert.Empty(t, s.ClientKey("192.168.1.51"), "hosts are independent")
}

func TestStoreValidation(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Error(t, s.SetClientKey("", "key"))
	assert.Error(t, s.SetClientKey("host", ""))
}

func TestStoreSurvivesReload(t *testing.T) {
	s, dir := newTestStore(t)
	require.NoError(t, s.SetClientKey("tv.lan", "persisted-key"))

	reloaded, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "persisted-key", reloaded.ClientKey("tv.lan"))
	assert.Equal(t, []string{"tv.lan"}, reloaded.Hosts())
}

func TestStoreReplaceMarksCredential(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetClientKey("tv.lan", "old-key"))
	require.NoError(t, s.SetClientKey("tv.lan", "new-key"))

	assert.Equal(t, "new-key", s.ClientKey("tv.lan"))

	s.mu.Lock()
	cred := s.byHost["tv.lan"]
	s.mu.Unlock()
	assert.NotZero(t, cred.ReplacedAtMs, "replacing a different key is recorded")
}

func TestStoreForget(t *testing.T) {
	s, dir := newTestStore(t)
	require.NoError(t, s.SetClientKey("tv.lan", "key-1"))

	require.NoError(t, s.Forget("tv.lan"))
	assert.Empty(t, s.ClientKey("tv.lan"))

	// Forgetting twice is fine.
	require.NoError(t, s.Forget("tv.lan"))

	reloaded, err := NewStore(dir)
	require.NoError(t, err)
	assert.Empty(t, reloaded.ClientKey("tv.lan"), "forget persists")
}

func TestStoreFilePermissions(t *testing.T) {
	s, dir := newTestStore(t)
	require.NoError(t, s.SetClientKey("tv.lan", "secret"))

	info, err := os.Stat(filepath.Join(dir, credentialsFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, credentialsFile), []byte("{nope"), 0600))

	_, err := NewStore(dir)
	assert.Error(t, err)
}
