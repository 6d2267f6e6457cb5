package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/timeline-engine/internal/faststore"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(faststore.New(rdb), "test-secret")
}

func TestBatchLifecycle(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	batch, err := l.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, batch.AddJobs(ctx, "a", "b", "c"))

	pending, err := batch.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pending)
	total, err := batch.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	for _, job := range []string{"a", "b", "c"} {
		require.NoError(t, batch.RemoveJob(ctx, job, true))
	}

	pending, err = batch.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
	complete, err := batch.Complete(ctx)
	require.NoError(t, err)
	assert.True(t, complete)
	processed, err := batch.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), processed)
}

func TestRemoveJobLostRaceIsNoop(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	batch, err := l.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, batch.AddJobs(ctx, "a", "b", "c"))

	// 多个 worker 争抢同一个 job，只有赢家能扣减
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, batch.RemoveJob(ctx, "a", true))
		}()
	}
	wg.Wait()

	pending, err := batch.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)
	processed, err := batch.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), processed)
}

func TestRemoveJobWithoutIncrement(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	batch, err := l.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, batch.AddJobs(ctx, "a"))
	require.NoError(t, batch.RemoveJob(ctx, "a", false))

	pending, err := batch.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
	processed, err := batch.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), processed)
}

func TestTrackerFinishedAtThresholdFraction(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	batch, err := l.Create(ctx)
	require.NoError(t, err)
	// 过半即算完成
	require.NoError(t, batch.Connect(ctx, "rebuild:42", 0.5))
	require.NoError(t, batch.AddJobs(ctx, "a", "b", "c", "d"))

	require.NoError(t, batch.RemoveJob(ctx, "a", true))
	done, err := l.store.MarkerSet(ctx, "rebuild:42:finished")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, batch.RemoveJob(ctx, "b", true))
	done, err = l.store.MarkerSet(ctx, "rebuild:42:finished")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestTrackerWholeBatchThreshold(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	batch, err := l.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, batch.Connect(ctx, "rebuild:7", 1.0))
	require.NoError(t, batch.AddJobs(ctx, "a", "b", "c"))

	// 1/3、2/3 都不够，处理完最后一个才点亮
	for _, job := range []string{"a", "b"} {
		require.NoError(t, batch.RemoveJob(ctx, job, true))
		done, err := l.store.MarkerSet(ctx, "rebuild:7:finished")
		require.NoError(t, err)
		assert.False(t, done, job)
	}

	require.NoError(t, batch.RemoveJob(ctx, "c", true))
	done, err := l.store.MarkerSet(ctx, "rebuild:7:finished")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestAddJobsDeduplicates(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	batch, err := l.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, batch.AddJobs(ctx, "a"))
	require.NoError(t, batch.AddJobs(ctx, "a"))

	pending, err := batch.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
	total, err := batch.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	require.NoError(t, batch.RemoveJob(ctx, "a", true))

	jobs, err := batch.Jobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	complete, err := batch.Complete(ctx)
	require.NoError(t, err)
	assert.True(t, complete)
}

func TestGetUnknownBatch(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.Get(context.Background(), "no-such-batch")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	batch, err := l.Create(ctx)
	require.NoError(t, err)

	token, err := l.SignedToken(batch.ID)
	require.NoError(t, err)

	id, err := l.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, id)
}

func TestParseTokenGarbage(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// 用别的密钥签出来的也不认
	other := New(l.store, "other-secret")
	token, err := other.SignedToken("some-batch")
	require.NoError(t, err)
	_, err = l.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
