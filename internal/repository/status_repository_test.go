package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/timeline-engine/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Account{}, &model.Status{}, &model.Mention{},
		&model.Follow{}, &model.Tag{}, &model.StatusTag{},
	))
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, id int64, domain string, silenced bool) {
	t.Helper()
	require.NoError(t, db.Create(&model.Account{
		ID: id, Username: fmt.Sprintf("u%d", id), Domain: domain, Silenced: silenced,
	}).Error)
}

func seedStatus(t *testing.T, db *gorm.DB, s *model.Status) {
	t.Helper()
	if s.Visibility == "" {
		s.Visibility = model.VisibilityPublic
	}
	if s.ApprovalState == "" {
		s.ApprovalState = model.ApprovalApproved
	}
	require.NoError(t, db.Create(s).Error)
}

func ids(statuses []*model.Status) []int64 {
	out := make([]int64, len(statuses))
	for i, s := range statuses {
		out[i] = s.ID
	}
	return out
}

func TestGetByIDsPreservesOrderAndDropsMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatusRepository(db)
	ctx := context.Background()

	seedAccount(t, db, 1, "", false)
	for _, id := range []int64{1, 2, 3} {
		seedStatus(t, db, &model.Status{ID: id, AccountID: 1})
	}

	rows, err := repo.GetByIDs(ctx, []int64{3, 99, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids(rows))
}

func TestQueryBounds(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatusRepository(db)
	ctx := context.Background()

	seedAccount(t, db, 1, "", false)
	for id := int64(1); id <= 5; id++ {
		seedStatus(t, db, &model.Status{ID: id, AccountID: 1})
	}

	// max 不含，min 含
	rows, err := repo.Query(ctx, StatusFilter{MaxID: 5, MinID: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3, 2}, ids(rows))

	rows, err = repo.Query(ctx, StatusFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4}, ids(rows))

	rows, err = repo.Query(ctx, StatusFilter{Ascending: true, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(rows))
}

func TestQueryFollowedByIncludesSelf(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatusRepository(db)
	ctx := context.Background()

	seedAccount(t, db, 1, "", false)
	seedAccount(t, db, 2, "", false)
	seedAccount(t, db, 3, "", false)
	require.NoError(t, db.Create(&model.Follow{AccountID: 1, TargetID: 2}).Error)

	seedStatus(t, db, &model.Status{ID: 1, AccountID: 2})
	seedStatus(t, db, &model.Status{ID: 2, AccountID: 3})
	seedStatus(t, db, &model.Status{ID: 3, AccountID: 1})

	rows, err := repo.Query(ctx, StatusFilter{FollowedBy: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids(rows))
}

func TestQueryExclusionsAndLanguages(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatusRepository(db)
	ctx := context.Background()

	seedAccount(t, db, 1, "", false)
	seedAccount(t, db, 2, "spam.example", false)
	seedAccount(t, db, 3, "", true)

	seedStatus(t, db, &model.Status{ID: 1, AccountID: 1, Language: "en"})
	seedStatus(t, db, &model.Status{ID: 2, AccountID: 1, Language: "fr"})
	seedStatus(t, db, &model.Status{ID: 3, AccountID: 1})
	seedStatus(t, db, &model.Status{ID: 4, AccountID: 2})
	seedStatus(t, db, &model.Status{ID: 5, AccountID: 3})

	rows, err := repo.Query(ctx, StatusFilter{
		ExcludeDomains:  []string{"spam.example"},
		ExcludeSilenced: true,
		Languages:       []string{"en"},
	})
	require.NoError(t, err)
	// 无语言标注的不受语言过滤影响
	assert.Equal(t, []int64{3, 1}, ids(rows))

	rows, err = repo.Query(ctx, StatusFilter{ExcludeAccountIDs: []int64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids(rows))
}

func TestQueryTagSets(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatusRepository(db)
	tags := NewTagRepository(db)
	ctx := context.Background()

	seedAccount(t, db, 1, "", false)
	seedStatus(t, db, &model.Status{ID: 1, AccountID: 1})
	seedStatus(t, db, &model.Status{ID: 2, AccountID: 1})
	seedStatus(t, db, &model.Status{ID: 3, AccountID: 1})
	require.NoError(t, tags.Attach(ctx, 1, []string{"go"}))
	require.NoError(t, tags.Attach(ctx, 2, []string{"go", "redis"}))
	require.NoError(t, tags.Attach(ctx, 3, []string{"rust"}))

	rows, err := repo.Query(ctx, StatusFilter{TagAny: []string{"go", "rust"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, ids(rows))

	rows, err = repo.Query(ctx, StatusFilter{TagAny: []string{"go"}, TagAll: []string{"redis"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(rows))

	rows, err = repo.Query(ctx, StatusFilter{TagAny: []string{"go"}, TagNone: []string{"redis"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(rows))
}

func TestNewestIDBefore(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatusRepository(db)
	ctx := context.Background()
	now := time.Now()

	seedAccount(t, db, 1, "", false)
	seedStatus(t, db, &model.Status{ID: 1, AccountID: 1, CreatedAt: now.Add(-48 * time.Hour)})
	seedStatus(t, db, &model.Status{ID: 2, AccountID: 1, CreatedAt: now.Add(-24 * time.Hour)})
	seedStatus(t, db, &model.Status{ID: 3, AccountID: 1, CreatedAt: now})

	id, ok, err := repo.NewestIDBefore(ctx, 1, now.Add(-12*time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), id)

	_, ok, err = repo.NewestIDBefore(ctx, 1, now.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
}
