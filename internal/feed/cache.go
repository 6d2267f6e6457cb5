package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/d60-Lab/timeline-engine/internal/faststore"
)

// Cache owns one ranked sequence per (kind, owner) pair in the fast
// store, scored by status id so score doubles as the sort key, plus the
// per-owner regeneration marker.
type Cache struct {
	store    *faststore.Store
	maxItems int64
	regenTTL time.Duration
}

func NewCache(store *faststore.Store, maxItems int64, regenTTL time.Duration) *Cache {
	if maxItems <= 0 {
		maxItems = 400
	}
	if regenTTL <= 0 {
		// 过期兜底：重建崩溃时不至于让读者永远走回源路径
		regenTTL = 24 * time.Hour
	}
	return &Cache{store: store, maxItems: maxItems, regenTTL: regenTTL}
}

// Key builds the timeline key for a (kind, owner) pair.
func (c *Cache) Key(kind Kind, ownerID int64) string {
	return fmt.Sprintf("timeline:%s:%d", kind, ownerID)
}

func (c *Cache) markerKey(ownerID int64) string {
	return fmt.Sprintf("regenerating:%d", ownerID)
}

// Append adds a status to the timeline and trims it to the configured
// maximum length, dropping the oldest entries.
func (c *Cache) Append(ctx context.Context, kind Kind, ownerID, statusID int64) error {
	return c.store.ZAddTrim(ctx, c.Key(kind, ownerID), float64(statusID), strconv.FormatInt(statusID, 10), c.maxItems)
}

// Clear drops the whole timeline for a (kind, owner) pair.
func (c *Cache) Clear(ctx context.Context, kind Kind, ownerID int64) error {
	return c.store.Del(ctx, c.Key(kind, ownerID))
}

// Remove deletes a status from the timeline; absence is a no-op.
func (c *Cache) Remove(ctx context.Context, kind Kind, ownerID, statusID int64) error {
	return c.store.ZRem(ctx, c.Key(kind, ownerID), strconv.FormatInt(statusID, 10))
}

// RangeByScore returns up to limit status ids strictly below maxID,
// newest first. maxID <= 0 means unbounded.
func (c *Cache) RangeByScore(ctx context.Context, kind Kind, ownerID, maxID int64, limit int) ([]int64, error) {
	return c.store.ZRevRangeByScoreInt64(ctx, c.Key(kind, ownerID), maxID, int64(limit))
}

// MarkRegenerating flags the owner's cache as untrustworthy. The flag
// expires on its own so a crashed rebuild cannot wedge readers forever.
func (c *Cache) MarkRegenerating(ctx context.Context, ownerID int64) error {
	return c.store.SetMarker(ctx, c.markerKey(ownerID), c.regenTTL)
}

// ClearRegenerating removes the flag. Only the rebuild writer calls
// this, and only once the cache is fully reconstructed.
func (c *Cache) ClearRegenerating(ctx context.Context, ownerID int64) error {
	return c.store.ClearMarker(ctx, c.markerKey(ownerID))
}

func (c *Cache) IsRegenerating(ctx context.Context, ownerID int64) (bool, error) {
	return c.store.MarkerSet(ctx, c.markerKey(ownerID))
}
