package binding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCacheInvalidateByPrefix(t *testing.T) {
	cache, err := NewQueryCache(8)
	require.NoError(t, err)

	cache.Set("orders", 1)
	cache.Set("orders/store-1", 2)
	cache.Set("ordersx", 3)
	cache.Set("categories", 4)

	assert.Equal(t, 2, cache.Invalidate(OrdersQueryKey))
	assert.Equal(t, 0, cache.Invalidate(OrdersQueryKey))

	for key, wantStale := range map[string]bool{
		"orders":         true,
		"orders/store-1": true,
		"ordersx":        false,
		"categories":     false,
	} {
		_, stale, ok := cache.Get(key)
		require.True(t, ok, key)
		assert.Equal(t, wantStale, stale, key)
	}
}

func TestQueryCacheFetchRefetchesStale(t *testing.T) {
	cache, err := NewQueryCache(8)
	require.NoError(t, err)
	ctx := context.Background()

	loads := 0
	load := func(context.Context) (any, error) {
		loads++
		return loads, nil
	}

	v, err := cache.Fetch(ctx, OrdersQueryKey, load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = cache.Fetch(ctx, OrdersQueryKey, load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	cache.Invalidate(OrdersQueryKey)
	v, err = cache.Fetch(ctx, OrdersQueryKey, load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, stale, _ := cache.Get(OrdersQueryKey)
	assert.False(t, stale)
}

func TestQueryCacheFetchErrorKeepsStaleEntry(t *testing.T) {
	cache, err := NewQueryCache(8)
	require.NoError(t, err)
	cache.Set(OrdersQueryKey, "old")
	cache.Invalidate(OrdersQueryKey)

	boom := errors.New("boom")
	_, err = cache.Fetch(context.Background(), OrdersQueryKey, func(context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	v, stale, ok := cache.Get(OrdersQueryKey)
	require.True(t, ok)
	assert.True(t, stale)
	assert.Equal(t, "old", v)
}

func TestQueryCacheEvictsOldest(t *testing.T) {
	cache, err := NewQueryCache(2)
	require.NoError(t, err)

	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Set("c", 3)

	_, _, ok := cache.Get("a")
	assert.False(t, ok)
}
