// Package retention evaluates per-account cleanup policies against the
// status archive, resumably: a cursor in the fast store remembers how
// far each account's scan has advanced, and user actions that newly
// protect an old status rewind it.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/d60-Lab/timeline-engine/internal/faststore"
	"github.com/d60-Lab/timeline-engine/internal/model"
	"github.com/d60-Lab/timeline-engine/internal/repository"
)

// Action names the user gesture that may un-protect or re-protect an
// old status.
type Action string

const (
	ActionUnfavourite Action = "unfav"
	ActionUnbookmark  Action = "unbookmark"
	ActionUnpin       Action = "unpin"
)

const defaultScanLimit = 50

// Engine drives policy evaluation. Scans walk ascending id order from
// the cursor (inclusive) up to the age cutoff.
type Engine struct {
	policies repository.RetentionRepository
	statuses repository.StatusRepository
	store    *faststore.Store
}

func NewEngine(policies repository.RetentionRepository, statuses repository.StatusRepository, store *faststore.Store) *Engine {
	return &Engine{policies: policies, statuses: statuses, store: store}
}

func cursorKey(accountID int64) string {
	return fmt.Sprintf("retentionCursor:%d", accountID)
}

// ComputeCutoffID returns the newest status id old enough to be
// eligible under the policy's minimum age; ok is false when the account
// has no status that old.
func (e *Engine) ComputeCutoffID(ctx context.Context, p *model.RetentionPolicy, now time.Time) (int64, bool, error) {
	return e.statuses.NewestIDBefore(ctx, p.AccountID, now.Add(-p.MinStatusAge))
}

// StatusesToDelete returns the next batch of deletable statuses in
// ascending id order, bounded below by the scan cursor (inclusive) and
// above by the age cutoff. maxID and minID additionally clamp the
// range; either may be zero.
func (e *Engine) StatusesToDelete(ctx context.Context, p *model.RetentionPolicy, now time.Time, limit int, maxID, minID int64) ([]*model.Status, error) {
	if limit <= 0 {
		limit = defaultScanLimit
	}
	cutoff, ok, err := e.ComputeCutoffID(ctx, p, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if maxID == 0 || cutoff < maxID {
		maxID = cutoff
	}

	cursor, _, err := e.store.GetInt64(ctx, cursorKey(p.AccountID))
	if err != nil {
		return nil, err
	}
	if cursor > minID {
		minID = cursor
	}
	if minID > maxID {
		return nil, nil
	}
	return e.statuses.RetentionCandidates(ctx, p, minID, maxID, limit)
}

// RecordLastInspected advances the scan cursor to the given id. The
// next scan resumes at this id, inclusive.
func (e *Engine) RecordLastInspected(ctx context.Context, accountID, statusID int64) error {
	return e.store.SetInt64(ctx, cursorKey(accountID), statusID)
}

// InvalidateLastInspected rewinds the cursor when a user action makes
// an already-scanned status newly deletable. The rewind only happens
// when the account's policy actually keys on the action (unpinning is
// irrelevant unless pinned statuses are kept) and the status sits below
// the current cursor; the cursor never moves forward here.
func (e *Engine) InvalidateLastInspected(ctx context.Context, status *model.Status, action Action) error {
	p, err := e.policies.Get(ctx, status.AccountID)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	relevant := false
	switch action {
	case ActionUnfavourite:
		relevant = p.KeepSelfFav
	case ActionUnbookmark:
		relevant = p.KeepSelfBookmark
	case ActionUnpin:
		relevant = p.KeepPinned
	}
	if !relevant {
		return nil
	}

	cursor, ok, err := e.store.GetInt64(ctx, cursorKey(status.AccountID))
	if err != nil {
		return err
	}
	if !ok || status.ID >= cursor {
		return nil
	}
	return e.store.SetInt64(ctx, cursorKey(status.AccountID), status.ID)
}

// ApplyPolicyChange persists a policy update. Widening the policy (any
// exemption dropped or threshold loosened) throws the cursor away so
// the whole archive is rescanned under the new rules.
func (e *Engine) ApplyPolicyChange(ctx context.Context, policy *model.RetentionPolicy) error {
	old, err := e.policies.Get(ctx, policy.AccountID)
	if err != nil {
		return err
	}
	if err := e.policies.Upsert(ctx, policy); err != nil {
		return err
	}
	if old != nil && policy.WidenedFrom(old) {
		return e.store.Del(ctx, cursorKey(policy.AccountID))
	}
	return nil
}

// Policy returns one account's policy, nil when none is configured.
func (e *Engine) Policy(ctx context.Context, accountID int64) (*model.RetentionPolicy, error) {
	return e.policies.Get(ctx, accountID)
}

// Policies lists every account policy for the cleanup sweep.
func (e *Engine) Policies(ctx context.Context) ([]*model.RetentionPolicy, error) {
	return e.policies.List(ctx)
}
