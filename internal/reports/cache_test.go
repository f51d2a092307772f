package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheComputesOnceThenServesHits(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	compute := func() (any, error) {
		calls++
		return map[string]float64{"net": 250}, nil
	}

	var first, second map[string]float64
	require.NoError(t, cache.GetOrCompute(ctx, "ledger:test", &first, compute))
	require.NoError(t, cache.GetOrCompute(ctx, "ledger:test", &second, compute))

	require.Equal(t, 1, calls)
	require.Equal(t, first, second)
	require.Equal(t, 250.0, second["net"])
}

func TestCacheInvalidateDropsAllReports(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	var out map[string]float64
	require.NoError(t, cache.GetOrCompute(ctx, "ledger:test", &out, func() (any, error) {
		return map[string]float64{"net": 1}, nil
	}))
	require.True(t, mr.Exists(cachePrefix+"ledger:test"))

	require.NoError(t, cache.Invalidate(ctx))
	require.False(t, mr.Exists(cachePrefix+"ledger:test"))
}

func TestCacheComputeErrorIsNotCached(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	boom := errors.New("boom")
	var out map[string]float64
	err := cache.GetOrCompute(ctx, "ledger:test", &out, func() (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, cache.GetOrCompute(ctx, "ledger:test", &out, func() (any, error) {
		return map[string]float64{"net": 7}, nil
	}))
	require.Equal(t, 7.0, out["net"])
}

func TestNilCachePassesThrough(t *testing.T) {
	var cache *Cache
	var out map[string]float64
	require.NoError(t, cache.GetOrCompute(context.Background(), "x", &out, func() (any, error) {
		return map[string]float64{"net": 3}, nil
	}))
	require.Equal(t, 3.0, out["net"])
}
