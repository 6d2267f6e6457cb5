package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/timeline-engine/config"
	"github.com/d60-Lab/timeline-engine/internal/faststore"
	"github.com/d60-Lab/timeline-engine/internal/feed"
	"github.com/d60-Lab/timeline-engine/internal/model"
	"github.com/d60-Lab/timeline-engine/internal/repository"
	"github.com/d60-Lab/timeline-engine/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func envInt(name string, fallback int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := faststore.New(rdb)

	// params
	N := envInt("N", 20000)          // fans of the author
	POSTS := envInt("POSTS", 100)    // statuses to publish
	WORKERS := envInt("WORKERS", 8)  // fanout workers
	CLAIM := envInt("CLAIM", 64)     // claim per tick
	READS := envInt("READS", 200)    // timeline reads after fanout

	// clean tables for a reproducible run (ok for local bench)
	_ = db.Exec("TRUNCATE TABLE statuses, outbox, follows, accounts RESTART IDENTITY CASCADE").Error
	_ = rdb.FlushDB(context.Background()).Err()

	statuses := repository.NewStatusRepository(db)
	rels := repository.NewRelationshipRepository(db)
	tags := repository.NewTagRepository(db)

	cache := feed.NewCache(store, cfg.Feed.MaxItems, cfg.Feed.RegenerationTTL)
	reader := feed.NewReader(cache, store, statuses)
	publisher := feed.NewPublisher(db, tags)

	// seed one author and N fans
	author := model.Account{ID: 1, Username: "author0"}
	_ = db.Where("id = ?", author.ID).FirstOrCreate(&author).Error
	accounts := make([]model.Account, N)
	for i := 0; i < N; i++ {
		id := int64(i + 2)
		accounts[i] = model.Account{ID: id, Username: fmt.Sprintf("u%d", id)}
	}
	_ = db.CreateInBatches(&accounts, 1000).Error
	for i := 0; i < N; i++ {
		_ = rels.Follow(context.Background(), accounts[i].ID, author.ID)
	}

	worker := feed.NewFanoutWorker(db, cache, statuses, rels, tags, WORKERS, CLAIM, 20*time.Millisecond)
	stop := worker.Start()
	defer stop(context.Background())

	// publish POSTS
	pubDurations := make([]time.Duration, 0, POSTS)
	for i := 0; i < POSTS; i++ {
		st := time.Now()
		status := &model.Status{
			ID:            int64(1000000 + i),
			AccountID:     author.ID,
			Visibility:    model.VisibilityPublic,
			ApprovalState: model.ApprovalApproved,
		}
		if err := publisher.Publish(context.Background(), status, nil); err != nil {
			panic(err)
		}
		pubDurations = append(pubDurations, time.Since(st))
	}

	// collect landing metrics
	land := make([]time.Duration, 0, POSTS)
	timeout := time.After(2 * time.Minute)
	for len(land) < POSTS {
		select {
		case d := <-worker.Metrics():
			land = append(land, d)
		case <-timeout:
			fmt.Printf("timeout while waiting for fanout metrics: got=%d want=%d\n", len(land), POSTS)
			goto PRINT
		}
	}

PRINT:
	var pubSum time.Duration
	for _, d := range pubDurations {
		pubSum += d
	}
	fmt.Printf("N=%d POSTS=%d WORKERS=%d CLAIM=%d\n", N, POSTS, WORKERS, CLAIM)
	fmt.Printf("Publish tx latency: avg=%v p95=%v p99=%v\n",
		pubSum/time.Duration(len(pubDurations)), pct(pubDurations, 0.95), pct(pubDurations, 0.99))
	if len(land) > 0 {
		var landSum time.Duration
		for _, d := range land {
			landSum += d
		}
		fmt.Printf("Fanout landing (outbox->done): samples=%d avg=%v p95=%v p99=%v\n",
			len(land), landSum/time.Duration(len(land)), pct(land, 0.95), pct(land, 0.99))
	}

	// read one fan's home timeline repeatedly
	readDurations := make([]time.Duration, 0, READS)
	for i := 0; i < READS; i++ {
		st := time.Now()
		refs, err := reader.Get(context.Background(), feed.Request{
			Kind:    feed.KindHome,
			OwnerID: accounts[i%N].ID,
			Limit:   50,
		})
		if err != nil {
			panic(err)
		}
		_ = refs
		readDurations = append(readDurations, time.Since(st))
	}
	var readSum time.Duration
	for _, d := range readDurations {
		readSum += d
	}
	fmt.Printf("Home read (limit=50): samples=%d avg=%v p95=%v p99=%v\n",
		len(readDurations), readSum/time.Duration(len(readDurations)), pct(readDurations, 0.95), pct(readDurations, 0.99))
}
