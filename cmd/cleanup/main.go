package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/timeline-engine/config"
	"github.com/d60-Lab/timeline-engine/internal/faststore"
	"github.com/d60-Lab/timeline-engine/internal/repository"
	"github.com/d60-Lab/timeline-engine/internal/retention"
	"github.com/d60-Lab/timeline-engine/pkg/database"
	"github.com/d60-Lab/timeline-engine/pkg/logger"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// 清理巡检：对每个配置了策略的账号推进一批删除，游标在快存储里续扫
func main() {
	cfg := must(config.Load())
	if err := logger.Init(cfg.Log.Level); err != nil {
		panic(err)
	}
	defer logger.Sync()

	db := must(database.InitDB(cfg))
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := faststore.New(rdb)

	statuses := repository.NewStatusRepository(db)
	policies := repository.NewRetentionRepository(db)
	engine := retention.NewEngine(policies, statuses, store)

	batchSize := 50
	if s := os.Getenv("BATCH"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			batchSize = v
		}
	}

	ctx := context.Background()
	list := must(engine.Policies(ctx))
	logger.Info("cleanup sweep starting", zap.Int("policies", len(list)))

	var deleted int
	for _, p := range list {
		for {
			batch, err := engine.StatusesToDelete(ctx, p, time.Now(), batchSize, 0, 0)
			if err != nil {
				logger.Error("scan failed", zap.Int64("account", p.AccountID), zap.Error(err))
				break
			}
			if len(batch) == 0 {
				break
			}
			ids := make([]int64, len(batch))
			for i, s := range batch {
				ids[i] = s.ID
			}
			if err := statuses.Delete(ctx, ids); err != nil {
				logger.Error("delete failed", zap.Int64("account", p.AccountID), zap.Error(err))
				break
			}
			deleted += len(ids)
			// 游标推进到本批最后一条之后
			if err := engine.RecordLastInspected(ctx, p.AccountID, ids[len(ids)-1]+1); err != nil {
				logger.Error("cursor update failed", zap.Int64("account", p.AccountID), zap.Error(err))
				break
			}
			if len(batch) < batchSize {
				break
			}
		}
	}
	logger.Info("cleanup sweep done", zap.Int("deleted", deleted))
}
