package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...FileOption) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), "json", opts...)
	require.NoError(t, err)
	return s
}

func TestFileStoreSaveLoad(t *testing.T) {
	s := newTestStore(t)
	data := map[string]any{
		"conn_local_file": map[string]any{"type": "file", "version": "v1.0.0"},
	}
	require.NoError(t, s.SaveStage("conn_local_file.json", data, false))
	assert.True(t, s.Exists("conn_local_file.json"))

	loaded, err := s.LoadStage("conn_local_file.json")
	require.NoError(t, err)
	assert.Equal(t, data, loaded)
}

func TestFileStoreLoadMissing(t *testing.T) {
	s := newTestStore(t)
	loaded, err := s.LoadStage("missing.json")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestFileStoreSaveMerge(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveStage("stage.json", map[string]any{
		"first": map[string]any{"a": "1"},
	}, false))
	require.NoError(t, s.SaveStage("stage.json", map[string]any{
		"first":  map[string]any{"b": "2"},
		"second": map[string]any{"c": "3"},
	}, true))

	loaded, err := s.LoadStage("stage.json")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"first":  map[string]any{"a": "1", "b": "2"},
		"second": map[string]any{"c": "3"},
	}, loaded)
}

func TestFileStoreRemoveStage(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveStage("stage.json", map[string]any{
		"keep": map[string]any{"a": "1"},
		"drop": map[string]any{"b": "2"},
	}, false))
	require.NoError(t, s.RemoveStage("stage.json", "drop"))

	loaded, err := s.LoadStage("stage.json")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"keep": map[string]any{"a": "1"}}, loaded)

	// Removing from a missing file is a no-op.
	require.NoError(t, s.RemoveStage("missing.json", "drop"))
}

func TestFileStoreCreate(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("stage.json", nil))
	assert.True(t, s.Exists("stage.json"))

	// Create never clobbers existing content.
	require.NoError(t, s.SaveStage("stage.json", map[string]any{
		"name": map[string]any{"a": "1"},
	}, false))
	require.NoError(t, s.Create("stage.json", nil))
	loaded, err := s.LoadStage("stage.json")
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestFileStoreFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("one.json", nil))
	require.NoError(t, s.Create("two.json", nil))

	names, err := s.Files()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one.json", "two.json"}, names)

	names, err = s.Files("two.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"one.json"}, names)
}

func TestFileStoreMoveAndRemove(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("stage.json", nil))

	destination := filepath.Join(t.TempDir(), "archive", "stage.json")
	require.NoError(t, s.Move("stage.json", destination))
	_, err := OSFileSystem{}.Stat(destination)
	assert.NoError(t, err)
	assert.True(t, s.Exists("stage.json"))

	require.NoError(t, s.Remove("stage.json"))
	assert.False(t, s.Exists("stage.json"))
	assert.Error(t, s.Remove("stage.json"))
}

func TestFileStoreCompressed(t *testing.T) {
	for _, codec := range []string{"gzip", "bz2", "xz"} {
		t.Run(codec, func(t *testing.T) {
			s := newTestStore(t, WithCompress(codec))
			data := map[string]any{
				"conn_local_file": map[string]any{"version": "v1.0.0"},
			}
			require.NoError(t, s.SaveStage("stage.json", data, false))
			loaded, err := s.LoadStage("stage.json")
			require.NoError(t, err)
			assert.Equal(t, data, loaded)
		})
	}
}

func TestFileStoreYAMLExtension(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "yaml")
	require.NoError(t, err)
	data := map[string]any{"name": map[string]any{"a": "1"}}
	require.NoError(t, s.SaveStage("stage.yaml", data, false))
	loaded, err := s.LoadStage("stage.yaml")
	require.NoError(t, err)
	assert.Equal(t, data, loaded)

	_, err = NewFileStore(t.TempDir(), "toml")
	assert.Error(t, err)
}
