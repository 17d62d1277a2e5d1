package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturna-project/nocturna/internal/cache"
)

func TestKey(t *testing.T) {
	assert.Equal(t,
		"correlation:52.3676:4.9041:25",
		cache.Key("correlation", 52.3676, 4.9041, 25))

	// Coordinates are quantized to four decimals, so keys collapse for
	// points closer than ~11m.
	assert.Equal(t,
		cache.Key("trend", 52.36761, 4.90412, 10, 5),
		cache.Key("trend", 52.36759, 4.90408, 10, 5))

	// Parameter order matters.
	assert.NotEqual(t,
		cache.Key("trend", 52.3676, 4.9041, 10, 5),
		cache.Key("trend", 52.3676, 4.9041, 5, 10))
}

func TestMemory_GetSet(t *testing.T) {
	store := cache.NewMemory()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"a":1}`), value)
}

func TestMemory_Expiry(t *testing.T) {
	store := cache.NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_Invalidate(t *testing.T) {
	store := cache.NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "correlation:52.0000:5.0000:25", []byte("a"), time.Minute))
	require.NoError(t, store.Set(ctx, "correlation:51.0000:4.0000:10", []byte("b"), time.Minute))
	require.NoError(t, store.Set(ctx, "trend:52.0000:5.0000:25:5", []byte("c"), time.Minute))

	removed, err := store.Invalidate(ctx, "correlation:")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, ok, _ := store.Get(ctx, "trend:52.0000:5.0000:25:5")
	assert.True(t, ok)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	store := cache.NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := cache.Key("anomaly", 52.0, 5.0, n%5)
			_ = store.Set(ctx, key, []byte("v"), time.Minute)
			_, _, _ = store.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, store.Len(), 5)
}
