package json

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "layouts.json")
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	s, err := Open(storePath(t), testLogger())
	require.NoError(t, err)

	_, ok, err := s.Get("firefox")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutPersistsAndReloads(t *testing.T) {
	path := storePath(t)

	s, err := Open(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Put("firefox", 1))
	require.NoError(t, s.Put("terminal", 0))
	require.NoError(t, s.Close())

	reloaded, err := Open(path, testLogger())
	require.NoError(t, err)

	mapping, ok, err := reloaded.Get("firefox")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, mapping.Layout)

	mapping, ok, err = reloaded.Get("terminal")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, mapping.Layout)
}

func TestPutUpsertsSingleEntry(t *testing.T) {
	path := storePath(t)

	s, err := Open(path, testLogger())
	require.NoError(t, err)

	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	times := []time.Time{first, second}
	s.now = func() time.Time {
		next := times[0]
		if len(times) > 1 {
			times = times[1:]
		}
		return next
	}

	require.NoError(t, s.Put("terminal", 0))
	require.NoError(t, s.Put("terminal", 0))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var onDisk map[string]struct {
		Layout  int       `json:"layout"`
		Updated time.Time `json:"updated"`
	}
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Len(t, onDisk, 1, "re-adding the same window must not duplicate the entry")
	assert.Equal(t, 0, onDisk["terminal"].Layout)
	assert.Equal(t, second, onDisk["terminal"].Updated)
}

func TestPutWritesAtomically(t *testing.T) {
	path := storePath(t)

	s, err := Open(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Put("firefox", 1))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestOpenRecoversCorruptFile(t *testing.T) {
	path := storePath(t)
	require.NoError(t, os.WriteFile(path, []byte("{ not json at all"), 0o644))

	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core).Sugar()

	s, err := Open(path, logger)
	require.NoError(t, err, "corrupt state must never surface as a load error")

	_, ok, err := s.Get("firefox")
	require.NoError(t, err)
	assert.False(t, ok, "store must come up empty")

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err, "unreadable file must be preserved as a backup")
	assert.Equal(t, "{ not json at all", string(backup))

	require.Equal(t, 1, logs.Len(), "recovery must be logged")

	// the store stays usable after recovery
	require.NoError(t, s.Put("firefox", 1))
	reloaded, err := Open(path, testLogger())
	require.NoError(t, err)
	_, ok, err = reloaded.Get("firefox")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaveMergesConcurrentWriters(t *testing.T) {
	path := storePath(t)

	daemonStore, err := Open(path, testLogger())
	require.NoError(t, err)
	addStore, err := Open(path, testLogger())
	require.NoError(t, err)

	// interleaved writes from two processes sharing the file: neither
	// clobbers the other's entry
	require.NoError(t, daemonStore.Put("firefox", 1))
	require.NoError(t, addStore.Put("terminal", 0))
	require.NoError(t, daemonStore.Put("gimp", 2))

	reloaded, err := Open(path, testLogger())
	require.NoError(t, err)
	for window, layout := range map[string]int{"firefox": 1, "terminal": 0, "gimp": 2} {
		mapping, ok, err := reloaded.Get(window)
		require.NoError(t, err)
		require.True(t, ok, "missing %s", window)
		assert.Equal(t, layout, mapping.Layout, window)
	}
}

func TestFileFormat(t *testing.T) {
	path := storePath(t)

	s, err := Open(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Put("firefox", 1))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "firefox")
	assert.Contains(t, raw["firefox"], "layout")
	assert.Contains(t, raw["firefox"], "updated")
}
