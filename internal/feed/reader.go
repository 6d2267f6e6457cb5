package feed

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/timeline-engine/internal/faststore"
	"github.com/d60-Lab/timeline-engine/internal/model"
	"github.com/d60-Lab/timeline-engine/internal/repository"
	"github.com/d60-Lab/timeline-engine/pkg/logger"
)

const defaultPageLimit = 20

// trendingRankKey is the ranked tag zset maintained by the scoring
// engine; the trending variant of the reader pages over it directly.
const trendingRankKey = "trending:tags"

// StatusRef is the reader's result unit: an id plus the freshness stamp
// callers need for conditional responses.
type StatusRef struct {
	ID        int64
	UpdatedAt time.Time
}

// TagCombination carries the optional any/all/none tag sets layered on
// top of a tag timeline's primary tag.
//
// Unknown mode keys are ignored rather than rejected: modes arrive from
// loosely-validated client input and new modes must be deployable
// server-side without breaking old clients. This is the opposite
// posture from repository.StatusFilterFromParams, whose callers are our
// own code and deserve a hard error.
type TagCombination struct {
	Any  []string
	All  []string
	None []string
}

// TagCombinationFromModes extracts the known combination modes from a
// mode map, ignoring anything else.
func TagCombinationFromModes(modes map[string][]string) TagCombination {
	var c TagCombination
	for mode, names := range modes {
		switch mode {
		case "any":
			c.Any = append(c.Any, names...)
		case "all":
			c.All = append(c.All, names...)
		case "none":
			c.None = append(c.None, names...)
		}
	}
	return c
}

func (c TagCombination) empty() bool {
	return len(c.Any) == 0 && len(c.All) == 0 && len(c.None) == 0
}

// Request describes one timeline page.
type Request struct {
	Kind    Kind
	OwnerID int64
	Viewer  *ViewerContext

	// MaxID is an exclusive upper bound; 0 means newest page.
	MaxID int64
	Limit int

	// Public timeline restrictions.
	LocalOnly  bool
	RemoteOnly bool

	// Tag timeline: primary tag name plus optional combination sets.
	Tag         string
	Combination TagCombination
}

// Reader serves timeline pages, preferring the fast store and falling
// back to the source of truth when the cache cannot be trusted.
type Reader struct {
	cache    *Cache
	store    *faststore.Store
	statuses repository.StatusRepository
	filter   VisibilityFilter
}

func NewReader(cache *Cache, store *faststore.Store, statuses repository.StatusRepository) *Reader {
	return &Reader{cache: cache, store: store, statuses: statuses}
}

// Get returns one page of the requested timeline, newest first. Every
// status passes the visibility filter for the requesting viewer before
// it is returned.
func (r *Reader) Get(ctx context.Context, req Request) ([]StatusRef, error) {
	if req.Limit <= 0 {
		req.Limit = defaultPageLimit
	}

	if req.Kind == KindTrending {
		return r.trendingPage(ctx, req)
	}

	useCache := true
	switch req.Kind {
	case KindHome:
		regen, err := r.cache.IsRegenerating(ctx, req.OwnerID)
		if err != nil {
			// Fast store down: home has an equivalent query, degrade to it.
			logger.Warn("home cache unavailable, falling back", zap.Int64("owner", req.OwnerID), zap.Error(err))
			regen = true
		}
		useCache = !regen
	case KindPublic:
		// The shared firehose zset carries no local/remote split.
		useCache = !req.LocalOnly && !req.RemoteOnly
	case KindTag:
		// Combination sets are only answerable by the source of truth.
		useCache = req.Combination.empty()
	case KindGroup:
		// 待审帖只对作者本人可见，缓存里没有，带观察者时必须回源
		useCache = req.Viewer == nil
	}

	if useCache {
		refs, err := r.cachedPage(ctx, req)
		if err == nil {
			return refs, nil
		}
		logger.Warn("cache read failed, falling back", zap.String("kind", string(req.Kind)), zap.Error(err))
	}
	return r.queriedPage(ctx, req)
}

func (r *Reader) cachedPage(ctx context.Context, req Request) ([]StatusRef, error) {
	ids, err := r.cache.RangeByScore(ctx, req.Kind, req.OwnerID, req.MaxID, req.Limit)
	if err != nil {
		return nil, err
	}
	// Hydration is the correctness gate: ids whose row has since been
	// deleted from the source of truth drop out here.
	statuses, err := r.statuses.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return r.visible(req.Viewer, statuses, req.Limit), nil
}

func (r *Reader) queriedPage(ctx context.Context, req Request) ([]StatusRef, error) {
	f, ok := r.fallbackFilter(req)
	if !ok {
		return nil, nil
	}
	statuses, err := r.statuses.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return r.visible(req.Viewer, statuses, req.Limit), nil
}

// fallbackFilter builds the source of truth query equivalent to each
// timeline variant. ok is false for variants with no fallback.
func (r *Reader) fallbackFilter(req Request) (repository.StatusFilter, bool) {
	f := repository.StatusFilter{
		MaxID: req.MaxID,
		Limit: req.Limit,
	}
	switch req.Kind {
	case KindHome:
		f.FollowedBy = req.OwnerID
		f.Visibility = []model.Visibility{model.VisibilityPublic, model.VisibilityUnlisted, model.VisibilityPrivate}
	case KindPublic:
		f.Visibility = []model.Visibility{model.VisibilityPublic}
		f.ExcludeReplies = true
		f.ExcludeReblogs = true
		f.ExcludeSilenced = true
		f.LocalOnly = req.LocalOnly
		f.RemoteOnly = req.RemoteOnly
	case KindTag:
		f.Visibility = []model.Visibility{model.VisibilityPublic}
		f.ExcludeSilenced = true
		f.TagAny = append([]string{req.Tag}, req.Combination.Any...)
		f.TagAll = req.Combination.All
		f.TagNone = req.Combination.None
	case KindGroup:
		f.GroupID = req.OwnerID
		if req.Viewer != nil {
			f.IncludePendingFrom = req.Viewer.AccountID
		}
	default:
		return repository.StatusFilter{}, false
	}
	req.Viewer.ApplyExclusions(&f)
	return f, true
}

func (r *Reader) visible(viewer *ViewerContext, statuses []*model.Status, limit int) []StatusRef {
	refs := make([]StatusRef, 0, len(statuses))
	for _, s := range statuses {
		if !r.filter.Allowed(viewer, s) {
			continue
		}
		refs = append(refs, StatusRef{ID: s.ID, UpdatedAt: s.UpdatedAt})
		if len(refs) == limit {
			break
		}
	}
	return refs
}

// trendingPage pages the ranked tag zset. There is no source of truth
// fallback: the ranking only exists in the fast store.
func (r *Reader) trendingPage(ctx context.Context, req Request) ([]StatusRef, error) {
	members, err := r.store.ZRevRangeWithScores(ctx, trendingRankKey, int64(req.Limit))
	if err != nil {
		return nil, err
	}
	refs := make([]StatusRef, 0, len(members))
	for _, z := range members {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		refs = append(refs, StatusRef{ID: id})
	}
	return refs, nil
}
