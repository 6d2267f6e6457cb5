package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/timeline-engine/internal/faststore"
	"github.com/d60-Lab/timeline-engine/internal/feed"
	"github.com/d60-Lab/timeline-engine/internal/ledger"
	"github.com/d60-Lab/timeline-engine/internal/model"
	"github.com/d60-Lab/timeline-engine/internal/repository"
	"github.com/d60-Lab/timeline-engine/internal/retention"
	"github.com/d60-Lab/timeline-engine/internal/trending"
)

type testApp struct {
	db     *gorm.DB
	mr     *miniredis.Miniredis
	store  *faststore.Store
	ledger *ledger.Ledger
	router *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Account{}, &model.Status{}, &model.Mention{},
		&model.Follow{}, &model.Block{}, &model.Mute{}, &model.DomainBlock{},
		&model.Tag{}, &model.StatusTag{}, &model.Outbox{}, &model.RetentionPolicy{},
	))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := faststore.New(rdb)

	statuses := repository.NewStatusRepository(db)
	rels := repository.NewRelationshipRepository(db)
	accounts := repository.NewAccountRepository(db)
	tags := repository.NewTagRepository(db)
	policies := repository.NewRetentionRepository(db)

	cache := feed.NewCache(store, 400, time.Hour)
	reader := feed.NewReader(cache, store, statuses)
	viewers := feed.NewViewerLoader(accounts, rels)
	publisher := feed.NewPublisher(db, tags)
	regenerator := feed.NewRegenerator(cache, statuses, rels, 400)
	fanout := feed.NewFanoutWorker(db, cache, statuses, rels, tags, 1, 128, time.Millisecond)
	recorder := trending.NewRecorder(tags, store, 100)
	trendingEngine := trending.NewEngine(tags, store, trending.Options{})
	retentionEngine := retention.NewEngine(policies, statuses, store)
	jobLedger := ledger.New(store, "test-secret")

	h := New(viewers, reader, publisher, fanout, regenerator,
		retentionEngine, trendingEngine, recorder, jobLedger,
		statuses, rels, accounts, tags)

	return &testApp{
		db:     db,
		mr:     mr,
		store:  store,
		ledger: jobLedger,
		router: SetupRouter(h, gin.TestMode),
	}
}

func (a *testApp) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestHomeTimelineRequiresAccount(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/timelines/home", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetentionPolicyRoundTrip(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPut, "/api/v1/retention/1",
		`{"min_status_age_days": 14, "keep_pinned": true, "min_favs": 5}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/retention/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data model.RetentionPolicy `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Data.AccountID)
	assert.True(t, resp.Data.KeepPinned)
	assert.Equal(t, int64(5), resp.Data.MinFavs)
	assert.Equal(t, 14*24*time.Hour, resp.Data.MinStatusAge)
}

func TestRetentionPolicyRejectsBadBody(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPut, "/api/v1/retention/1", `{"min_status_age_days": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/retention/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegenerateHomeEndpoint(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.db.Create(&model.Account{ID: 1, Username: "u1"}).Error)
	require.NoError(t, app.db.Create(&model.Status{ID: 10, AccountID: 1, Visibility: model.VisibilityPublic}).Error)

	w := app.do(t, http.MethodPost, "/api/v1/timelines/home/regenerate?account_id=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)

	batchID, err := app.ledger.ParseToken(resp.Data.Token)
	require.NoError(t, err)

	// 重建在后台跑，等批次排空
	assert.Eventually(t, func() bool {
		batch, err := app.ledger.Get(ctx, batchID)
		if err != nil {
			return false
		}
		total, err := batch.Total(ctx)
		if err != nil || total == 0 {
			return false
		}
		complete, err := batch.Complete(ctx)
		return err == nil && complete
	}, 5*time.Second, 10*time.Millisecond)
}

func TestLedgerProgressEndpoint(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	batch, err := app.ledger.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, batch.AddJobs(ctx, "a", "b"))
	require.NoError(t, batch.RemoveJob(ctx, "a", true))

	token, err := app.ledger.SignedToken(batch.ID)
	require.NoError(t, err)

	w := app.do(t, http.MethodGet, "/api/v1/ledger/"+token, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Pending   int64 `json:"pending"`
			Total     int64 `json:"total"`
			Processed int64 `json:"processed"`
			Complete  bool  `json:"complete"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Data.Pending)
	assert.Equal(t, int64(2), resp.Data.Total)
	assert.Equal(t, int64(1), resp.Data.Processed)
	assert.False(t, resp.Data.Complete)
}

func TestLedgerProgressRejectsGarbageToken(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/ledger/not-a-token", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublishAndDeleteStatus(t *testing.T) {
	app := newTestApp(t)

	require.NoError(t, app.db.Create(&model.Account{ID: 1, Username: "u1"}).Error)

	w := app.do(t, http.MethodPost, "/api/v1/statuses",
		`{"id": 100, "account_id": 1, "visibility": "public"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, app.db.Model(&model.Status{}).Where("id = ?", 100).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	w = app.do(t, http.MethodDelete, "/api/v1/statuses/100", "")
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, app.db.Model(&model.Status{}).Where("id = ?", 100).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	w = app.do(t, http.MethodDelete, "/api/v1/statuses/100", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
