package feed

import (
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/timeline-engine/internal/faststore"
	"github.com/d60-Lab/timeline-engine/internal/model"
	"github.com/d60-Lab/timeline-engine/internal/repository"
)

type testEnv struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	store    *faststore.Store
	cache    *Cache
	reader   *Reader
	statuses repository.StatusRepository
	rels     repository.RelationshipRepository
	tags     repository.TagRepository
	accounts repository.AccountRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Account{}, &model.Status{}, &model.Mention{},
		&model.Follow{}, &model.Block{}, &model.Mute{}, &model.DomainBlock{},
		&model.Tag{}, &model.StatusTag{}, &model.Outbox{},
	))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := faststore.New(rdb)

	cache := NewCache(store, 400, 0)
	statuses := repository.NewStatusRepository(db)
	return &testEnv{
		db:       db,
		mr:       mr,
		store:    store,
		cache:    cache,
		reader:   NewReader(cache, store, statuses),
		statuses: statuses,
		rels:     repository.NewRelationshipRepository(db),
		tags:     repository.NewTagRepository(db),
		accounts: repository.NewAccountRepository(db),
	}
}

func (e *testEnv) seedAccount(t *testing.T, id int64, domain string) {
	t.Helper()
	require.NoError(t, e.db.Create(&model.Account{
		ID:       id,
		Username: fmt.Sprintf("u%d", id),
		Domain:   domain,
	}).Error)
}

func (e *testEnv) seedStatus(t *testing.T, s *model.Status) {
	t.Helper()
	if s.Visibility == "" {
		s.Visibility = model.VisibilityPublic
	}
	if s.ApprovalState == "" {
		s.ApprovalState = model.ApprovalApproved
	}
	require.NoError(t, e.db.Create(s).Error)
}

func refIDs(refs []StatusRef) []int64 {
	ids := make([]int64, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}
