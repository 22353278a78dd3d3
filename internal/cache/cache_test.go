package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	_, err := c.Get(ctx, "chunks:a")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, c.Set(ctx, "chunks:a", []byte("payload"), 0))
	got, err := c.Get(ctx, "chunks:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	m := c.GetMetrics()
	assert.Equal(t, int64(2), m.TotalRequests)
	assert.Equal(t, int64(1), m.CacheHits)
	assert.Equal(t, int64(1), m.CacheMisses)
	assert.InDelta(t, 0.5, m.HitRatio, 1e-9)
}

func TestMemoryCacheCopiesValue(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))

	now = now.Add(2 * time.Second)
	_, err := c.Get(ctx, "short")
	assert.True(t, IsCacheMiss(err), "запись должна истечь")

	_, err = c.Get(ctx, "long")
	assert.NoError(t, err)

	// Запись вычищает истёкшие ключи
	require.NoError(t, c.Set(ctx, "other", []byte("3"), 0))
	assert.Equal(t, 2, c.Len())
}

func TestMemoryCacheDeleteAndClose(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Delete(ctx, "a"))

	_, err := c.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
}
