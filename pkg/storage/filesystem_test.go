package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutGet(t *testing.T) {
	store, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)

	hash, err := store.Put([]byte("progress report v1"))
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	data, err := store.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("progress report v1"), data)
	assert.True(t, store.Exists(hash))
}

func TestBlobStoreDedupesIdenticalContent(t *testing.T) {
	store, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)

	first, err := store.Put([]byte("same bytes"))
	require.NoError(t, err)
	second, err := store.Put([]byte("same bytes"))
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical content shares one blob")

	other, err := store.Put([]byte("different bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestBlobStorePutStream(t *testing.T) {
	store, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)

	fromStream, err := store.PutStream(bytes.NewReader([]byte("streamed")))
	require.NoError(t, err)
	fromBytes, err := store.Put([]byte("streamed"))
	require.NoError(t, err)
	assert.Equal(t, fromBytes, fromStream)
}

func TestBlobStoreMissingBlob(t *testing.T) {
	store, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)

	assert.False(t, store.Exists("deadbeef"))
	_, err = store.Get("deadbeef")
	assert.Error(t, err)
}
