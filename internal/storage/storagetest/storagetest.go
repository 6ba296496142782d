// Package storagetest holds the behavior every storage.Backend must share.
package storagetest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/bvault/internal/storage"
)

// Factory returns a fresh, empty backend.
type Factory func(t *testing.T) storage.Backend

// Run exercises the Backend contract against backends produced by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Run("StoreRetrieve", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)
		defer b.Close()

		require.NoError(t, b.Store(ctx, "bdeadbeef", []byte("-payload")))
		got, err := b.Retrieve(ctx, "bdeadbeef")
		require.NoError(t, err)
		assert.Equal(t, []byte("-payload"), got)
	})

	t.Run("RetrieveMissing", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()

		_, err := b.Retrieve(context.Background(), "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)
		defer b.Close()

		require.NoError(t, b.Store(ctx, storage.RevisionKey, []byte("one")))
		require.NoError(t, b.Store(ctx, storage.RevisionKey, []byte("two")))
		got, err := b.Retrieve(ctx, storage.RevisionKey)
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("List", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)
		defer b.Close()

		keys := []string{
			storage.ConfigKey,
			storage.BlockKey("abc"),
			storage.EntryStorageKey("/srv/data/a b.txt", 3),
			storage.EntryStorageKey("/üñí/çødé", 1),
		}
		for _, k := range keys {
			require.NoError(t, b.Store(ctx, k, []byte(k)))
		}
		got, err := b.List(ctx)
		require.NoError(t, err)
		sort.Strings(got)
		sort.Strings(keys)
		assert.Equal(t, keys, got)
	})

	t.Run("Delete", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)
		defer b.Close()

		require.NoError(t, b.Store(ctx, "k", []byte("v")))
		require.NoError(t, b.Delete(ctx, "k"))
		_, err := b.Retrieve(ctx, "k")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.NoError(t, b.Delete(ctx, "k"), "deleting an absent key")
	})

	t.Run("EmptyValue", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)
		defer b.Close()

		require.NoError(t, b.Store(ctx, "empty", []byte{}))
		got, err := b.Retrieve(ctx, "empty")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("BinaryValue", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)
		defer b.Close()

		value := make([]byte, 4096)
		for i := range value {
			value[i] = byte(i * 7)
		}
		require.NoError(t, b.Store(ctx, "bin", value))
		got, err := b.Retrieve(ctx, "bin")
		require.NoError(t, err)
		assert.Equal(t, value, got)
	})
}
