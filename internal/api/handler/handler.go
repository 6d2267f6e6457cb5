package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/timeline-engine/internal/feed"
	"github.com/d60-Lab/timeline-engine/internal/ledger"
	"github.com/d60-Lab/timeline-engine/internal/repository"
	"github.com/d60-Lab/timeline-engine/internal/retention"
	"github.com/d60-Lab/timeline-engine/internal/trending"
)

// Handler 聚合所有 HTTP 依赖
type Handler struct {
	viewers     *feed.ViewerLoader
	reader      *feed.Reader
	publisher   *feed.Publisher
	fanout      *feed.FanoutWorker
	regenerator *feed.Regenerator
	retention   *retention.Engine
	trending    *trending.Engine
	recorder    *trending.Recorder
	ledger      *ledger.Ledger
	statuses    repository.StatusRepository
	rels        repository.RelationshipRepository
	accounts    repository.AccountRepository
	tags        repository.TagRepository
}

func New(
	viewers *feed.ViewerLoader,
	reader *feed.Reader,
	publisher *feed.Publisher,
	fanout *feed.FanoutWorker,
	regenerator *feed.Regenerator,
	retentionEngine *retention.Engine,
	trendingEngine *trending.Engine,
	recorder *trending.Recorder,
	jobLedger *ledger.Ledger,
	statuses repository.StatusRepository,
	rels repository.RelationshipRepository,
	accounts repository.AccountRepository,
	tags repository.TagRepository,
) *Handler {
	return &Handler{
		viewers:     viewers,
		reader:      reader,
		publisher:   publisher,
		fanout:      fanout,
		regenerator: regenerator,
		retention:   retentionEngine,
		trending:    trendingEngine,
		recorder:    recorder,
		ledger:      jobLedger,
		statuses:    statuses,
		rels:        rels,
		accounts:    accounts,
		tags:        tags,
	}
}

// tagByName 返回标签ID；未知标签返回 0
func (h *Handler) tagByName(c *gin.Context, name string) (int64, error) {
	tag, err := h.tags.GetByName(c.Request.Context(), name)
	if err != nil {
		return 0, err
	}
	if tag == nil {
		return 0, nil
	}
	return tag.ID, nil
}

// viewerID 从 query 取观察者账号；0 表示匿名
func viewerID(c *gin.Context) int64 {
	id, _ := strconv.ParseInt(c.Query("account_id"), 10, 64)
	return id
}

func queryInt64(c *gin.Context, key string) int64 {
	v, _ := strconv.ParseInt(c.Query(key), 10, 64)
	return v
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.DefaultQuery(key, "false"))
	return v
}
