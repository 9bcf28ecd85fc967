package sqlite

import (
	"context"
	"testing"

	"github.com/ganot/atelier/internal/domain/viewed"
	"github.com/ganot/atelier/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestKVStore_GetSetDelete(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	kv := NewKVStore(db)

	_, err := kv.Get(ctx, storage.KeyCart)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, kv.Set(ctx, storage.KeyCart, []byte(`[1]`)))
	require.NoError(t, kv.Set(ctx, storage.KeyCart, []byte(`[2]`)))
	value, err := kv.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	require.Equal(t, `[2]`, string(value))

	require.NoError(t, kv.Delete(ctx, storage.KeyCart))
	require.NoError(t, kv.Delete(ctx, storage.KeyCart))
	_, err = kv.Get(ctx, storage.KeyCart)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestKVStore_BacksAdapter(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	adapter := storage.NewAdapter[viewed.TrackedItem](NewKVStore(db), storage.KeyRecentlyViewed, viewed.MaxItems, nil)

	items := []viewed.TrackedItem{{ID: "p1", Name: "Jacket", Price: 10, Image: "/i", Link: "/l"}}
	require.NoError(t, adapter.Save(ctx, items))
	require.Equal(t, items, adapter.Load(ctx))
}

func TestKVStore_ClosedDatabaseIsUnavailable(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	kv := NewKVStore(db)
	require.NoError(t, db.Close())

	_, err = kv.Get(context.Background(), storage.KeyCart)
	require.ErrorIs(t, err, storage.ErrUnavailable)
}
