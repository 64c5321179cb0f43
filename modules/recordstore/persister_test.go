package recordstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePersister_LoadMissing(t *testing.T) {
	p := NewFilePersister(filepath.Join(t.TempDir(), "absent.json"))

	_, err := p.Load(context.Background())
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestFilePersister_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tasks": [`), 0o644))

	_, err := NewFilePersister(path).Load(context.Background())
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)
}

func TestFilePersister_SaveCreatesDirectoryAndIndents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "db.json")
	p := NewFilePersister(path)
	assert.Equal(t, path, p.Path())

	err := p.Save(context.Background(), Tables{"tasks": {{"id": "1", "completed_at": nil}}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "\n  \"tasks\""), "expected indented JSON, got %s", data)

	tables, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, tables["tasks"], 1)
	assert.Nil(t, tables["tasks"][0]["completed_at"])
}

func TestFilePersister_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	p := NewFilePersister(filepath.Join(dir, "db.json"))

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Save(context.Background(), Tables{}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "db.json", entries[0].Name())
}

func TestFilePersister_SaveHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewFilePersister(filepath.Join(t.TempDir(), "db.json")).Save(ctx, Tables{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteFileAtomic_ReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tasks.csv")

	require.NoError(t, WriteFileAtomic(path, []byte("old"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("new"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
