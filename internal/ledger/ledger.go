// Package ledger tracks batches of asynchronous jobs in the fast store
// so callers can observe progress and detect completion. All counter
// movements are single atomic commands; two workers racing to remove
// the same job cannot double-decrement.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/timeline-engine/internal/faststore"
)

// ErrNotFound marks a batch id with no ledger behind it, as opposed to
// a batch that exists but is empty.
var ErrNotFound = errors.New("ledger: batch not found")

const batchTTL = 30 * 24 * time.Hour

// Ledger creates and loads job batches.
type Ledger struct {
	store  *faststore.Store
	secret []byte
}

func New(store *faststore.Store, secret string) *Ledger {
	return &Ledger{store: store, secret: []byte(secret)}
}

// Batch is a handle on one ledger. The handle holds no state beyond the
// id; every operation reads or writes the fast store.
type Batch struct {
	ID     string
	ledger *Ledger
}

func (l *Ledger) key(id string) string     { return "jobledger:" + id }
func (l *Ledger) jobsKey(id string) string { return "jobledger:" + id + ":jobs" }

// Create opens a fresh batch.
func (l *Ledger) Create(ctx context.Context) (*Batch, error) {
	id := uuid.New().String()
	if err := l.store.HSet(ctx, l.key(id), "pending", 0, "total", 0, "processed", 0); err != nil {
		return nil, err
	}
	return &Batch{ID: id, ledger: l}, nil
}

// Get loads an existing batch, or ErrNotFound when the id was never
// created (or has expired).
func (l *Ledger) Get(ctx context.Context, id string) (*Batch, error) {
	exists, err := l.store.Exists(ctx, l.key(id))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &Batch{ID: id, ledger: l}, nil
}

// Connect attaches a completion tracker: once the processed share of
// the batch reaches threshold (a fraction in (0, 1]), the tracker's
// finished marker is set.
func (b *Batch) Connect(ctx context.Context, trackerKey string, threshold float64) error {
	return b.ledger.store.HSet(ctx, b.ledger.key(b.ID), "tracker", trackerKey,
		"threshold", strconv.FormatFloat(threshold, 'f', -1, 64))
}

// AddJobs registers job ids and bumps pending and total by the number
// actually new, so re-registering an id cannot leave the counters above
// the outstanding set's cardinality.
func (b *Batch) AddJobs(ctx context.Context, jobIDs ...string) error {
	if len(jobIDs) == 0 {
		return nil
	}
	added, err := b.ledger.store.SAdd(ctx, b.ledger.jobsKey(b.ID), jobIDs...)
	if err != nil {
		return err
	}
	if added == 0 {
		return nil
	}
	if _, err := b.ledger.store.HIncrBy(ctx, b.ledger.key(b.ID), "pending", added); err != nil {
		return err
	}
	_, err = b.ledger.store.HIncrBy(ctx, b.ledger.key(b.ID), "total", added)
	return err
}

// RemoveJob marks one job finished. The set removal is the arbiter:
// only the caller whose SREM actually removed the member decrements
// pending, so concurrent removals of the same job land exactly once.
// increment additionally counts the job as processed work (a skipped
// job is removed without incrementing).
func (b *Batch) RemoveJob(ctx context.Context, jobID string, increment bool) error {
	removed, err := b.ledger.store.SRem(ctx, b.ledger.jobsKey(b.ID), jobID)
	if err != nil {
		return err
	}
	if removed == 0 {
		// 输掉了竞争，什么都不做
		return nil
	}
	if _, err := b.ledger.store.HIncrBy(ctx, b.ledger.key(b.ID), "pending", -1); err != nil {
		return err
	}
	if !increment {
		return nil
	}
	processed, err := b.ledger.store.HIncrBy(ctx, b.ledger.key(b.ID), "processed", 1)
	if err != nil {
		return err
	}
	return b.maybeFinish(ctx, processed)
}

func (b *Batch) maybeFinish(ctx context.Context, processed int64) error {
	tracker, ok, err := b.ledger.store.HGet(ctx, b.ledger.key(b.ID), "tracker")
	if err != nil || !ok {
		return err
	}
	raw, ok, err := b.ledger.store.HGet(ctx, b.ledger.key(b.ID), "threshold")
	if err != nil || !ok {
		return err
	}
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("ledger: bad threshold %q: %w", raw, err)
	}
	total, err := b.Total(ctx)
	if err != nil {
		return err
	}
	if total > 0 && float64(processed)/float64(total) >= threshold {
		return b.ledger.store.SetMarker(ctx, tracker+":finished", batchTTL)
	}
	return nil
}

// Jobs lists the job ids still outstanding.
func (b *Batch) Jobs(ctx context.Context) ([]string, error) {
	return b.ledger.store.SMembers(ctx, b.ledger.jobsKey(b.ID))
}

// Pending returns the number of jobs not yet removed.
func (b *Batch) Pending(ctx context.Context) (int64, error) {
	return b.ledger.store.HGetInt64(ctx, b.ledger.key(b.ID), "pending")
}

// Total returns the number of jobs ever registered.
func (b *Batch) Total(ctx context.Context) (int64, error) {
	return b.ledger.store.HGetInt64(ctx, b.ledger.key(b.ID), "total")
}

// Processed returns the number of jobs counted as real work.
func (b *Batch) Processed(ctx context.Context) (int64, error) {
	return b.ledger.store.HGetInt64(ctx, b.ledger.key(b.ID), "processed")
}

// Complete reports whether every registered job has been removed.
func (b *Batch) Complete(ctx context.Context) (bool, error) {
	pending, err := b.Pending(ctx)
	if err != nil {
		return false, err
	}
	return pending == 0, nil
}
