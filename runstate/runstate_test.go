package runstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/backend"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(t.TempDir(), log.Root())
}

func TestFileStore_ReadMissingRecord(t *testing.T) {
	store := newStore(t)
	assert.False(t, store.Exists())

	_, err := store.Read()
	require.ErrorIs(t, err, ErrNotExist)
}

func TestFileStore_WriteReadRoundTrip(t *testing.T) {
	store := newStore(t)
	want := &RunState{
		RunID:         "run-42",
		Mode:          backend.ModeRemote,
		IsModeChanged: false,
	}
	require.NoError(t, store.Write(want))
	assert.True(t, store.Exists())

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStore_SetModePreservesRunID(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Write(&RunState{
		RunID: "run-42",
		Mode:  backend.ModeRemote,
	}))

	require.NoError(t, store.SetMode(backend.ModeLocal))

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "run-42", got.RunID)
	assert.Equal(t, backend.ModeLocal, got.Mode)
	assert.True(t, got.IsModeChanged)
}

func TestFileStore_SetModeOnMissingRecordCreatesIt(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetMode(backend.ModeOff))

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, backend.ModeOff, got.Mode)
	assert.True(t, got.IsModeChanged)
	assert.Empty(t, got.RunID)
}

func TestFileStore_Clear(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Write(&RunState{Mode: backend.ModeLocal}))
	require.True(t, store.Exists())

	require.NoError(t, store.Clear())
	assert.False(t, store.Exists())

	// Clearing twice is fine: a sibling may already have ended the run.
	require.NoError(t, store.Clear())
}

func TestFileStore_ReadCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, log.Root())
	require.NoError(t, os.WriteFile(filepath.Join(dir, Filename), []byte("{not json"), 0644))

	_, err := store.Read()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotExist)
}

func TestFileStore_FixedFilename(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, log.Root())
	assert.Equal(t, filepath.Join(dir, Filename), store.Path())
}
