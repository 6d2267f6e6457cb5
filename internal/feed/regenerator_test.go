package feed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/timeline-engine/internal/ledger"
	"github.com/d60-Lab/timeline-engine/internal/model"
)

func TestRegenerateRebuildsFromFollows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedAccount(t, 1, "")
	env.seedAccount(t, 2, "")
	env.seedAccount(t, 3, "")
	require.NoError(t, env.rels.Follow(ctx, 1, 2))

	env.seedStatus(t, &model.Status{ID: 1, AccountID: 2})
	env.seedStatus(t, &model.Status{ID: 2, AccountID: 3}) // 没关注，不应出现
	env.seedStatus(t, &model.Status{ID: 3, AccountID: 1})

	regen := NewRegenerator(env.cache, env.statuses, env.rels, 400)
	require.NoError(t, regen.Regenerate(ctx, 1, nil))

	// 标记已摘除，走缓存路径
	regenerating, err := env.cache.IsRegenerating(ctx, 1)
	require.NoError(t, err)
	assert.False(t, regenerating)

	refs, err := env.reader.Get(ctx, Request{Kind: KindHome, OwnerID: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, refIDs(refs))
}

func TestRegenerateDropsStaleEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedAccount(t, 1, "")
	env.seedAccount(t, 2, "")
	require.NoError(t, env.rels.Follow(ctx, 1, 2))
	env.seedStatus(t, &model.Status{ID: 1, AccountID: 2})

	// 缓存里残留一条已取关账号的旧内容
	require.NoError(t, env.cache.Append(ctx, KindHome, 1, 99))
	env.seedStatus(t, &model.Status{ID: 99, AccountID: 3})
	env.seedAccount(t, 3, "")

	regen := NewRegenerator(env.cache, env.statuses, env.rels, 400)
	require.NoError(t, regen.Regenerate(ctx, 1, nil))

	ids, err := env.cache.RangeByScore(ctx, KindHome, 1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestRegenerateReportsProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedAccount(t, 1, "")
	env.seedAccount(t, 2, "")
	require.NoError(t, env.rels.Follow(ctx, 1, 2))
	env.seedStatus(t, &model.Status{ID: 1, AccountID: 2})

	l := ledger.New(env.store, "secret")
	batch, err := l.Create(ctx)
	require.NoError(t, err)

	regen := NewRegenerator(env.cache, env.statuses, env.rels, 400)
	require.NoError(t, regen.Regenerate(ctx, 1, batch))

	complete, err := batch.Complete(ctx)
	require.NoError(t, err)
	assert.True(t, complete)
	total, err := batch.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total) // 关注的 2 加自己
}
