package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheAppendTrimsOldest(t *testing.T) {
	env := newTestEnv(t)
	cache := NewCache(env.store, 3, 0)
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		require.NoError(t, cache.Append(ctx, KindHome, 1, id))
	}

	ids, err := cache.RangeByScore(ctx, KindHome, 1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 3}, ids)
}

func TestCacheRangeUpperBoundExclusive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for id := int64(1); id <= 4; id++ {
		require.NoError(t, env.cache.Append(ctx, KindHome, 1, id))
	}

	ids, err := env.cache.RangeByScore(ctx, KindHome, 1, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids)
}

func TestCacheRemoveMissingIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.cache.Append(ctx, KindHome, 1, 7))
	require.NoError(t, env.cache.Remove(ctx, KindHome, 1, 99))
	require.NoError(t, env.cache.Remove(ctx, KindHome, 1, 7))

	ids, err := env.cache.RangeByScore(ctx, KindHome, 1, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRegenerationMarkerLifecycle(t *testing.T) {
	env := newTestEnv(t)
	cache := NewCache(env.store, 400, time.Hour)
	ctx := context.Background()

	regen, err := cache.IsRegenerating(ctx, 1)
	require.NoError(t, err)
	assert.False(t, regen)

	require.NoError(t, cache.MarkRegenerating(ctx, 1))
	regen, err = cache.IsRegenerating(ctx, 1)
	require.NoError(t, err)
	assert.True(t, regen)

	require.NoError(t, cache.ClearRegenerating(ctx, 1))
	regen, err = cache.IsRegenerating(ctx, 1)
	require.NoError(t, err)
	assert.False(t, regen)
}

func TestRegenerationMarkerExpires(t *testing.T) {
	env := newTestEnv(t)
	cache := NewCache(env.store, 400, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.MarkRegenerating(ctx, 1))
	env.mr.FastForward(2 * time.Hour)

	regen, err := cache.IsRegenerating(ctx, 1)
	require.NoError(t, err)
	assert.False(t, regen)
}
