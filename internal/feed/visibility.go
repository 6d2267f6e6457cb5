package feed

import (
	"github.com/d60-Lab/timeline-engine/internal/model"
	"github.com/d60-Lab/timeline-engine/internal/repository"
)

// ViewerContext 观察者的关系快照，读路径开始时加载一次，之后所有判断都是纯内存查表
type ViewerContext struct {
	AccountID int64
	Languages []string

	Following      map[int64]struct{}
	Blocking       map[int64]struct{}
	BlockedBy      map[int64]struct{}
	Muting         map[int64]struct{}
	BlockedDomains map[string]struct{}
}

// ApplyExclusions folds the viewer's relationship sets into a source of
// truth filter so fallback queries never run unfiltered.
func (v *ViewerContext) ApplyExclusions(f *repository.StatusFilter) {
	if v == nil {
		return
	}
	seen := make(map[int64]struct{}, len(v.Blocking)+len(v.BlockedBy)+len(v.Muting))
	for _, set := range []map[int64]struct{}{v.Blocking, v.BlockedBy, v.Muting} {
		for id := range set {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			f.ExcludeAccountIDs = append(f.ExcludeAccountIDs, id)
		}
	}
	for domain := range v.BlockedDomains {
		f.ExcludeDomains = append(f.ExcludeDomains, domain)
	}
	f.Languages = append(f.Languages, v.Languages...)
}

// VisibilityFilter is the single composable predicate deciding whether
// one viewer may see one status. Checks run cheapest-first: visibility
// class, then relationships, then language.
type VisibilityFilter struct{}

// Allowed reports whether viewer may see status. A nil viewer is an
// anonymous reader and only sees public and unlisted statuses.
func (VisibilityFilter) Allowed(viewer *ViewerContext, status *model.Status) bool {
	if viewer == nil {
		return status.Visibility == model.VisibilityPublic || status.Visibility == model.VisibilityUnlisted
	}
	// 自己的内容永远可见
	if status.AccountID == viewer.AccountID {
		return true
	}

	switch status.Visibility {
	case model.VisibilityPublic, model.VisibilityUnlisted, model.VisibilityGroup:
	case model.VisibilityPrivate:
		if _, ok := viewer.Following[status.AccountID]; !ok {
			return false
		}
	case model.VisibilityDirect:
		if !status.MentionsAccount(viewer.AccountID) {
			return false
		}
	default:
		return false
	}

	if _, ok := viewer.Blocking[status.AccountID]; ok {
		return false
	}
	if _, ok := viewer.BlockedBy[status.AccountID]; ok {
		return false
	}
	if _, ok := viewer.Muting[status.AccountID]; ok {
		return false
	}
	if status.Account != nil && status.Account.Domain != "" {
		if _, ok := viewer.BlockedDomains[status.Account.Domain]; ok {
			return false
		}
	}

	if len(viewer.Languages) > 0 && status.Language != "" {
		found := false
		for _, lang := range viewer.Languages {
			if lang == status.Language {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
