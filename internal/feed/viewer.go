package feed

import (
	"context"

	"github.com/d60-Lab/timeline-engine/internal/repository"
)

// ViewerLoader materializes a ViewerContext from the relationship
// tables. The snapshot is taken once per read request.
type ViewerLoader struct {
	accounts repository.AccountRepository
	rels     repository.RelationshipRepository
}

func NewViewerLoader(accounts repository.AccountRepository, rels repository.RelationshipRepository) *ViewerLoader {
	return &ViewerLoader{accounts: accounts, rels: rels}
}

// Load builds the context for accountID. accountID 0 means anonymous
// and yields a nil context.
func (l *ViewerLoader) Load(ctx context.Context, accountID int64) (*ViewerContext, error) {
	if accountID == 0 {
		return nil, nil
	}
	vc := &ViewerContext{AccountID: accountID}

	account, err := l.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		vc.Languages = account.Languages
	}

	following, err := l.rels.FollowingIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	vc.Following = toSet(following)

	blocking, err := l.rels.BlockedIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	vc.Blocking = toSet(blocking)

	blockedBy, err := l.rels.BlockerIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	vc.BlockedBy = toSet(blockedBy)

	muting, err := l.rels.MutedIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	vc.Muting = toSet(muting)

	domains, err := l.rels.BlockedDomains(ctx, accountID)
	if err != nil {
		return nil, err
	}
	vc.BlockedDomains = make(map[string]struct{}, len(domains))
	for _, d := range domains {
		vc.BlockedDomains[d] = struct{}{}
	}
	return vc, nil
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
