package feed

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/d60-Lab/timeline-engine/internal/ledger"
	"github.com/d60-Lab/timeline-engine/internal/model"
	"github.com/d60-Lab/timeline-engine/internal/repository"
	"github.com/d60-Lab/timeline-engine/pkg/logger"
)

// Regenerator rebuilds a home timeline from the source of truth, one
// followed account at a time. While the rebuild runs the owner's cache
// carries the regeneration marker and readers use the fallback query;
// the marker is cleared only after a fully successful rebuild, so a
// crash mid-way leaves readers on the correct path until the marker
// expires and a retry lands.
type Regenerator struct {
	cache    *Cache
	statuses repository.StatusRepository
	rels     repository.RelationshipRepository
	maxItems int
}

func NewRegenerator(cache *Cache, statuses repository.StatusRepository, rels repository.RelationshipRepository, maxItems int) *Regenerator {
	if maxItems <= 0 {
		maxItems = 400
	}
	return &Regenerator{cache: cache, statuses: statuses, rels: rels, maxItems: maxItems}
}

// Regenerate rebuilds accountID's home timeline. batch, when non-nil,
// receives one job per followed account so external pollers can watch
// the rebuild progress.
func (r *Regenerator) Regenerate(ctx context.Context, accountID int64, batch *ledger.Batch) error {
	if err := r.cache.MarkRegenerating(ctx, accountID); err != nil {
		return err
	}
	// 标记立起之后清空旧条目，取关账号的遗留内容不能活过重建
	if err := r.cache.Clear(ctx, KindHome, accountID); err != nil {
		return err
	}

	sources, err := r.rels.FollowingIDs(ctx, accountID)
	if err != nil {
		return err
	}
	sources = append(sources, accountID)

	if batch != nil {
		jobs := make([]string, len(sources))
		for i, id := range sources {
			jobs[i] = strconv.FormatInt(id, 10)
		}
		if err := batch.AddJobs(ctx, jobs...); err != nil {
			logger.Warn("regeneration ledger unavailable", zap.Error(err))
			batch = nil
		}
	}

	for _, sourceID := range sources {
		statuses, err := r.statuses.Query(ctx, repository.StatusFilter{
			AccountID:  sourceID,
			Visibility: []model.Visibility{model.VisibilityPublic, model.VisibilityUnlisted, model.VisibilityPrivate},
			Limit:      r.maxItems,
		})
		if err != nil {
			return err
		}
		for _, s := range statuses {
			if err := r.cache.Append(ctx, KindHome, accountID, s.ID); err != nil {
				return err
			}
		}
		if batch != nil {
			if err := batch.RemoveJob(ctx, strconv.FormatInt(sourceID, 10), true); err != nil {
				logger.Warn("regeneration ledger update failed", zap.Error(err))
			}
		}
	}

	// 全部成功后才摘掉标记
	return r.cache.ClearRegenerating(ctx, accountID)
}
