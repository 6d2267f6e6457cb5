package main

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/timeline-engine/config"
	"github.com/d60-Lab/timeline-engine/internal/api/handler"
	"github.com/d60-Lab/timeline-engine/internal/faststore"
	"github.com/d60-Lab/timeline-engine/internal/feed"
	"github.com/d60-Lab/timeline-engine/internal/ledger"
	"github.com/d60-Lab/timeline-engine/internal/repository"
	"github.com/d60-Lab/timeline-engine/internal/retention"
	"github.com/d60-Lab/timeline-engine/internal/trending"
	"github.com/d60-Lab/timeline-engine/pkg/database"
	"github.com/d60-Lab/timeline-engine/pkg/logger"
	"github.com/d60-Lab/timeline-engine/pkg/tracing"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())

	if err := logger.Init(cfg.Log.Level); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	if cfg.Tracing.Enabled {
		shutdown := must(tracing.Init(context.Background(), cfg.Tracing.Endpoint, "timeline-engine"))
		defer func() { _ = shutdown(context.Background()) }()
	}

	db := must(database.InitDB(cfg))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := faststore.New(rdb)
	if err := store.Ping(context.Background()); err != nil {
		panic(err)
	}

	statuses := repository.NewStatusRepository(db)
	rels := repository.NewRelationshipRepository(db)
	accounts := repository.NewAccountRepository(db)
	tags := repository.NewTagRepository(db)
	policies := repository.NewRetentionRepository(db)

	cache := feed.NewCache(store, cfg.Feed.MaxItems, cfg.Feed.RegenerationTTL)
	reader := feed.NewReader(cache, store, statuses)
	viewers := feed.NewViewerLoader(accounts, rels)
	publisher := feed.NewPublisher(db, tags)
	regenerator := feed.NewRegenerator(cache, statuses, rels, int(cfg.Feed.MaxItems))

	fanout := feed.NewFanoutWorker(db, cache, statuses, rels, tags, 4, 128, 50*time.Millisecond)
	stopFanout := fanout.Start()
	defer func() { _ = stopFanout(context.Background()) }()

	recorder := trending.NewRecorder(tags, store, 10000)
	stopRecorder := recorder.Start(4)
	defer func() { _ = stopRecorder(context.Background()) }()

	trendingEngine := trending.NewEngine(tags, store, trending.Options{
		Threshold:  int64(cfg.Trending.Threshold),
		HalfLife:   cfg.Trending.ScoreHalfLife,
		Cutoff:     cfg.Trending.ScoreCutoff,
		RankWindow: int64(cfg.Trending.RankWindow),
	})
	go func() {
		// 周期性重算热门分
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if err := trendingEngine.Update(context.Background(), time.Now()); err != nil {
				logger.Warn("trending update failed", zap.Error(err))
			}
		}
	}()

	retentionEngine := retention.NewEngine(policies, statuses, store)
	jobLedger := ledger.New(store, cfg.Ledger.Secret)

	h := handler.New(viewers, reader, publisher, fanout, regenerator,
		retentionEngine, trendingEngine, recorder, jobLedger,
		statuses, rels, accounts, tags)

	r := handler.SetupRouter(h, cfg.Server.Mode)
	logger.Info("server starting", zap.String("addr", cfg.Server.Addr))
	if err := r.Run(cfg.Server.Addr); err != nil {
		logger.Error("server exited", zap.Error(err))
	}
}
