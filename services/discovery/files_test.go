package discovery

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStorePut(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	content := []byte("case_id,activity,start,end\n")
	ref, err := store.Put(content, ".csv")
	require.NoError(t, err)

	sum := sha256.Sum256(content)
	require.Equal(t, hex.EncodeToString(sum[:]), ref.SHA256)
	require.Equal(t, ref.SHA256+".csv", ref.Name)

	stored, err := os.ReadFile(ref.Path)
	require.NoError(t, err)
	require.Equal(t, content, stored)

	// identical content resolves to the same reference without rewriting
	before, err := os.Stat(ref.Path)
	require.NoError(t, err)

	again, err := store.Put(content, ".csv")
	require.NoError(t, err)
	require.Equal(t, ref, again)

	after, err := os.Stat(ref.Path)
	require.NoError(t, err)
	require.Equal(t, before.ModTime(), after.ModTime())
}

func TestFileStoreLookup(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Put([]byte("version: 1\n"), ".yaml")
	require.NoError(t, err)

	require.True(t, store.Exists(ref.SHA256))
	require.False(t, store.Exists("deadbeef"))

	got, content, err := store.GetBySHA256(ref.SHA256)
	require.NoError(t, err)
	require.Equal(t, ref, got)
	require.Equal(t, []byte("version: 1\n"), content)

	_, _, err = store.GetBySHA256("deadbeef")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreDelete(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Put([]byte("payload"), ".txt")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ref.SHA256))
	require.False(t, store.Exists(ref.SHA256))

	// deleting an absent blob is a no-op
	require.NoError(t, store.Delete(ref.SHA256))
}
