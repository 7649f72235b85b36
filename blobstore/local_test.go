package blobstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	wb, err := store.Create(ctx, "container.shuffle")
	require.NoError(t, err)
	_, err = wb.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, wb.Sync())
	require.NoError(t, wb.Close())

	blob, err := store.Open(ctx, "container.shuffle")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(10), blob.Size())

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "3456", string(buf[:n]))
}

func TestLocalStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	_, err := store.Open(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	wb, err := store.Create(ctx, "gone")
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	require.NoError(t, store.Delete(ctx, "gone"))
	_, err = store.Open(ctx, "gone")
	assert.True(t, errors.Is(err, ErrNotFound))

	// Deleting twice is fine.
	require.NoError(t, store.Delete(ctx, "gone"))
}

func TestMemoryStorePublishOnClose(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	wb, err := store.Create(ctx, "blob")
	require.NoError(t, err)
	_, err = wb.Write([]byte("abc"))
	require.NoError(t, err)

	// Not yet published.
	_, err = store.Open(ctx, "blob")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, wb.Close())

	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), blob.Size())
}

func TestFaultyStoreFailAfterBytes(t *testing.T) {
	ctx := context.Background()
	store := NewFaultyStore(NewMemoryStore())
	store.FailAfterBytes(4)

	wb, err := store.Create(ctx, "blob")
	require.NoError(t, err)

	_, err = wb.Write([]byte("1234"))
	require.NoError(t, err)

	_, err = wb.Write([]byte("5"))
	assert.True(t, errors.Is(err, ErrInjected))
}
