package viewcache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamingbanjara/urgency-timer/pkg/viewcache"
)

func TestMemoryCacheCheckAndMark(t *testing.T) {
	t.Parallel()

	cache := viewcache.NewInMemory(time.Hour)
	t.Cleanup(func() { _ = cache.Close() })

	ctx := context.Background()

	already, err := cache.CheckAndMark(ctx, "sess-1", "prod-1")
	require.NoError(t, err)
	assert.False(t, already, "first call must create the marker")

	already, err = cache.CheckAndMark(ctx, "sess-1", "prod-1")
	require.NoError(t, err)
	assert.True(t, already, "second call must see the marker")

	// Different product or session is a distinct key.
	already, err = cache.CheckAndMark(ctx, "sess-1", "prod-2")
	require.NoError(t, err)
	assert.False(t, already)

	already, err = cache.CheckAndMark(ctx, "sess-2", "prod-1")
	require.NoError(t, err)
	assert.False(t, already)
}

func TestMemoryCacheExpiry(t *testing.T) {
	t.Parallel()

	cache := viewcache.NewInMemory(10 * time.Millisecond)
	t.Cleanup(func() { _ = cache.Close() })

	ctx := context.Background()

	already, err := cache.CheckAndMark(ctx, "sess-1", "prod-1")
	require.NoError(t, err)
	require.False(t, already)

	time.Sleep(20 * time.Millisecond)

	already, err = cache.CheckAndMark(ctx, "sess-1", "prod-1")
	require.NoError(t, err)
	assert.False(t, already, "expired marker must read as absent")
}

func TestMemoryCacheConcurrentCheckAndMark(t *testing.T) {
	t.Parallel()

	cache := viewcache.NewInMemory(time.Hour)
	t.Cleanup(func() { _ = cache.Close() })

	ctx := context.Background()

	const goroutines = 50

	var created atomic.Int64
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			already, err := cache.CheckAndMark(ctx, "sess-1", "prod-1")
			assert.NoError(t, err)
			if !already {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load(), "exactly one caller may create the marker")
}

func TestMemoryCacheFlush(t *testing.T) {
	t.Parallel()

	cache := viewcache.NewInMemory(time.Hour)
	t.Cleanup(func() { _ = cache.Close() })

	ctx := context.Background()

	_, err := cache.CheckAndMark(ctx, "sess-1", "prod-1")
	require.NoError(t, err)

	cache.Flush()

	already, err := cache.CheckAndMark(ctx, "sess-1", "prod-1")
	require.NoError(t, err)
	assert.False(t, already, "flush must drop all markers")
}

func TestMemoryCacheCloseIdempotent(t *testing.T) {
	t.Parallel()

	cache := viewcache.NewInMemory(time.Hour)
	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())
}

func TestMemoryCacheSessionTracking(t *testing.T) {
	t.Parallel()

	cache := viewcache.NewInMemory(time.Hour)
	t.Cleanup(func() { _ = cache.Close() })

	ctx := context.Background()

	shop, err := cache.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, shop, "an unmarked session has no storefront")

	require.NoError(t, cache.MarkSession(ctx, "sess-1", "shop.example.com"))

	shop, err = cache.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "shop.example.com", shop)

	// Re-marking moves the session to the new storefront.
	require.NoError(t, cache.MarkSession(ctx, "sess-1", "other.example.com"))

	shop, err = cache.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "other.example.com", shop)
}

func TestMemoryCacheSessionExpiry(t *testing.T) {
	t.Parallel()

	cache := viewcache.NewInMemory(10 * time.Millisecond)
	t.Cleanup(func() { _ = cache.Close() })

	ctx := context.Background()

	require.NoError(t, cache.MarkSession(ctx, "sess-1", "shop.example.com"))

	time.Sleep(20 * time.Millisecond)

	shop, err := cache.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, shop, "expired session marker must read as absent")
}

func TestMemoryCacheActiveViewers(t *testing.T) {
	t.Parallel()

	cache := viewcache.NewInMemory(time.Hour)
	t.Cleanup(func() { _ = cache.Close() })

	ctx := context.Background()

	n, err := cache.ActiveViewers(ctx, "prod-1")
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := int64(1); i <= 3; i++ {
		n, err = cache.IncrementActiveViewers(ctx, "prod-1")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	n, err = cache.ActiveViewers(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// Products count independently.
	n, err = cache.ActiveViewers(ctx, "prod-2")
	require.NoError(t, err)
	assert.Zero(t, n)
}
