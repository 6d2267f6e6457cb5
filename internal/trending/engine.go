// Package trending turns daily tag-use observations into a decaying
// popularity ranking. Usage is counted per distinct account per day in
// approximate counters; the ranking itself is a scored set in the fast
// store with the historical peak persisted on the tag row.
package trending

import (
	"context"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/timeline-engine/internal/faststore"
	"github.com/d60-Lab/timeline-engine/internal/model"
	"github.com/d60-Lab/timeline-engine/internal/repository"
	"github.com/d60-Lab/timeline-engine/pkg/logger"
)

const rankKey = "trending:tags"

// UseCounter estimates how many distinct accounts used a tag on a given
// day. The production counter reads the approximate distinct buckets.
type UseCounter interface {
	CountUses(ctx context.Context, tagID int64, day string) (int64, error)
}

type storeCounter struct{ store *faststore.Store }

func (c storeCounter) CountUses(ctx context.Context, tagID int64, day string) (int64, error) {
	return c.store.PFCount(ctx, activityKey(tagID, day))
}

// Options tune the scoring run. Zero values fall back to defaults.
type Options struct {
	// Threshold is the minimum distinct users today for a tag to score.
	Threshold int64
	// HalfLife controls how fast a peaked score decays.
	HalfLife time.Duration
	// Cutoff is the score below which a tag falls off the ranking.
	Cutoff float64
	// RankWindow is how many top entries count as currently trending.
	RankWindow int64
	// Counter overrides the distinct-use source.
	Counter UseCounter
}

// Engine recomputes scores and answers ranking queries.
type Engine struct {
	tags       repository.TagRepository
	store      *faststore.Store
	counter    UseCounter
	threshold  int64
	halfLife   time.Duration
	cutoff     float64
	rankWindow int64
}

func NewEngine(tags repository.TagRepository, store *faststore.Store, opts Options) *Engine {
	if opts.Threshold <= 0 {
		opts.Threshold = 5
	}
	if opts.HalfLife <= 0 {
		opts.HalfLife = 4 * time.Hour
	}
	if opts.Cutoff <= 0 {
		opts.Cutoff = 0.3
	}
	if opts.RankWindow <= 0 {
		opts.RankWindow = 10
	}
	if opts.Counter == nil {
		opts.Counter = storeCounter{store: store}
	}
	return &Engine{
		tags:       tags,
		store:      store,
		counter:    opts.Counter,
		threshold:  opts.Threshold,
		halfLife:   opts.HalfLife,
		cutoff:     opts.Cutoff,
		rankWindow: opts.RankWindow,
	}
}

// Update rescores every candidate tag as of the given instant.
// Candidates are the tags used today or yesterday plus everything
// currently ranked, so a tag that stopped being used keeps decaying
// until it crosses the cutoff and drops out.
func (e *Engine) Update(ctx context.Context, at time.Time) error {
	today := dayKey(at)
	yesterday := dayKey(at.Add(-24 * time.Hour))

	ids, err := e.candidates(ctx, today, yesterday)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	tags, err := e.tags.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	for _, tag := range tags {
		// 坏桶按 0 计，不让单个标签拖垮整轮重算
		observed := e.countOrZero(ctx, tag.ID, today)
		expected := e.countOrZero(ctx, tag.ID, yesterday)
		if expected == 0 {
			expected = 1
		}

		var score float64
		if observed >= e.threshold && observed > expected {
			// 增长分：今天相对昨天的超额，平方放大突发
			delta := float64(observed - expected)
			score = delta * delta / float64(expected)
			if score > tag.MaxScore {
				tag.MaxScore = score
				tag.MaxScoreAt = at
				if err := e.tags.RecordMaxScore(ctx, tag.ID, score, at); err != nil {
					return err
				}
			}
		} else if tag.MaxScore > 0 {
			elapsed := at.Sub(tag.MaxScoreAt)
			score = tag.MaxScore * math.Pow(0.5, elapsed.Seconds()/e.halfLife.Seconds())
		}

		member := strconv.FormatInt(tag.ID, 10)
		if score < e.cutoff {
			if err := e.store.ZRem(ctx, rankKey, member); err != nil {
				return err
			}
			continue
		}
		if err := e.store.ZAdd(ctx, rankKey, score, member); err != nil {
			return err
		}
	}
	return nil
}

// countOrZero reads one day's distinct-use estimate; errors and missing
// buckets both read as zero.
func (e *Engine) countOrZero(ctx context.Context, tagID int64, day string) int64 {
	n, err := e.counter.CountUses(ctx, tagID, day)
	if err != nil {
		logger.Warn("use counter failed", zap.Int64("tag", tagID), zap.String("day", day), zap.Error(err))
		return 0
	}
	return n
}

func (e *Engine) candidates(ctx context.Context, today, yesterday string) ([]int64, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(raw string) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, day := range []string{today, yesterday} {
		members, err := e.store.SMembers(ctx, usedKey(day))
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			add(m)
		}
	}

	ranked, err := e.store.ZRevRangeWithScores(ctx, rankKey, -1)
	if err != nil {
		return nil, err
	}
	for _, z := range ranked {
		if m, ok := z.Member.(string); ok {
			add(m)
		}
	}
	return ids, nil
}

// Get returns the top tags by score, highest first. filtered drops tags
// an operator marked non-trendable; the raw view keeps them for review.
func (e *Engine) Get(ctx context.Context, limit int, filtered bool) ([]*model.Tag, error) {
	if limit <= 0 {
		limit = int(e.rankWindow)
	}
	ranked, err := e.store.ZRevRangeWithScores(ctx, rankKey, int64(limit))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(ranked))
	for _, z := range ranked {
		m, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	tags, err := e.tags.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.Tag, len(tags))
	for _, t := range tags {
		byID[t.ID] = t
	}
	out := make([]*model.Tag, 0, len(ids))
	for _, id := range ids {
		tag, ok := byID[id]
		if !ok {
			continue
		}
		if filtered && !tag.Trendable {
			continue
		}
		out = append(out, tag)
	}
	return out, nil
}

// Trending reports whether the named tag currently sits inside the rank
// window.
func (e *Engine) Trending(ctx context.Context, name string) (bool, error) {
	tag, err := e.tags.GetByName(ctx, name)
	if err != nil {
		return false, err
	}
	if tag == nil {
		return false, nil
	}
	rank, ok, err := e.store.ZRevRank(ctx, rankKey, strconv.FormatInt(tag.ID, 10))
	if err != nil {
		return false, err
	}
	return ok && rank < e.rankWindow, nil
}
