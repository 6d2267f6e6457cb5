package faststore

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

func TestZAddTrimKeepsNewest(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, store.ZAddTrim(ctx, "tl", float64(i), "m"+string(rune('0'+i)), 3))
	}

	n, err := store.ZCard(ctx, "tl")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestZRevRangeByScoreInt64(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3, 4} {
		require.NoError(t, store.ZAdd(ctx, "tl", float64(id), strconv.FormatInt(id, 10)))
	}

	ids, err := store.ZRevRangeByScoreInt64(ctx, "tl", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3, 2, 1}, ids)

	// 上界不含
	ids, err = store.ZRevRangeByScoreInt64(ctx, "tl", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids)
}

func TestMarkerExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetMarker(ctx, "regen:1", time.Hour))
	set, err := store.MarkerSet(ctx, "regen:1")
	require.NoError(t, err)
	assert.True(t, set)

	mr.FastForward(2 * time.Hour)

	set, err = store.MarkerSet(ctx, "regen:1")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestHIncrByConcurrent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := store.HIncrBy(ctx, "counters", "pending", 1)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	n, err := store.HGetInt64(ctx, "counters", "pending")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)
}

func TestSAddReportsAddedCount(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	n, err := store.SAdd(ctx, "jobs", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// 重复注册不计数
	n, err = store.SAdd(ctx, "jobs", "a", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSRemReportsRemovedCount(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.SAdd(ctx, "jobs", "a")
	require.NoError(t, err)

	n, err := store.SRem(ctx, "jobs", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.SRem(ctx, "jobs", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestGetInt64Missing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.GetInt64(ctx, "cursor:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetInt64(ctx, "cursor:1", 42))
	v, ok, err := store.GetInt64(ctx, "cursor:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), v)
}

func TestHGetInt64MissingFieldIsZero(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	n, err := store.HGetInt64(ctx, "nope", "pending")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
