package repository

import (
	"errors"
	"fmt"

	"github.com/d60-Lab/timeline-engine/internal/model"
)

// ErrInvalidFilterKey is returned by StatusFilterFromParams for any key
// it does not recognize. This is a configuration error and is never
// absorbed: callers built their query wrong.
var ErrInvalidFilterKey = errors.New("invalid filter key")

// StatusFilter is the explicit, typed query description for the source
// of truth. Every field is enumerated here; nothing is driven by loose
// per-request maps.
type StatusFilter struct {
	// AccountID restricts to a single author.
	AccountID int64
	// FollowedBy restricts to authors followed by the given account,
	// plus the account itself (home fallback scope).
	FollowedBy int64
	// Visibility is the inclusion set; empty means no restriction.
	Visibility []model.Visibility
	// MaxID is exclusive, MinID inclusive; zero disables either bound.
	MaxID int64
	MinID int64

	ExcludeReplies bool
	ExcludeReblogs bool

	// LocalOnly/RemoteOnly restrict by the author's domain.
	LocalOnly  bool
	RemoteOnly bool
	// ExcludeSilenced drops statuses from silenced authors.
	ExcludeSilenced bool

	// Tag combination sets, by tag name.
	TagAny  []string
	TagAll  []string
	TagNone []string

	// GroupID restricts to one group's statuses. IncludePendingFrom
	// additionally admits that account's own pending statuses; all
	// other non-approved statuses are excluded.
	GroupID            int64
	IncludePendingFrom int64

	// Exclusion lists supplied from the viewer's relationships.
	ExcludeAccountIDs []int64
	ExcludeDomains    []string

	// Languages is an allow-list; statuses with no language always pass.
	Languages []string

	Ascending bool
	Limit     int
}

// StatusFilterFromParams builds a StatusFilter from a key/value map,
// for callers that assemble queries dynamically. Unknown keys are a
// hard error naming the key — unlike tag combination modes, which are
// deliberately permissive (see feed.TagCombination).
func StatusFilterFromParams(params map[string]interface{}) (StatusFilter, error) {
	var f StatusFilter
	for key, value := range params {
		var err error
		switch key {
		case "account_id":
			f.AccountID, err = toInt64(value)
		case "followed_by":
			f.FollowedBy, err = toInt64(value)
		case "visibility":
			f.Visibility, err = toVisibilities(value)
		case "max_id":
			f.MaxID, err = toInt64(value)
		case "min_id":
			f.MinID, err = toInt64(value)
		case "exclude_replies":
			f.ExcludeReplies, err = toBool(value)
		case "exclude_reblogs":
			f.ExcludeReblogs, err = toBool(value)
		case "local":
			f.LocalOnly, err = toBool(value)
		case "remote":
			f.RemoteOnly, err = toBool(value)
		case "exclude_silenced":
			f.ExcludeSilenced, err = toBool(value)
		case "tag_any":
			f.TagAny, err = toStrings(value)
		case "tag_all":
			f.TagAll, err = toStrings(value)
		case "tag_none":
			f.TagNone, err = toStrings(value)
		case "group_id":
			f.GroupID, err = toInt64(value)
		case "include_pending_from":
			f.IncludePendingFrom, err = toInt64(value)
		case "exclude_account_ids":
			f.ExcludeAccountIDs, err = toInt64s(value)
		case "exclude_domains":
			f.ExcludeDomains, err = toStrings(value)
		case "languages":
			f.Languages, err = toStrings(value)
		case "ascending":
			f.Ascending, err = toBool(value)
		case "limit":
			var n int64
			n, err = toInt64(value)
			f.Limit = int(n)
		default:
			return StatusFilter{}, fmt.Errorf("%w: %q", ErrInvalidFilterKey, key)
		}
		if err != nil {
			return StatusFilter{}, fmt.Errorf("filter key %q: %w", key, err)
		}
	}
	return f, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toInt64s(v interface{}) ([]int64, error) {
	switch ns := v.(type) {
	case []int64:
		return ns, nil
	case []int:
		out := make([]int64, len(ns))
		for i, n := range ns {
			out[i] = int64(n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected integer list, got %T", v)
	}
}

func toBool(v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", v)
	}
	return b, nil
}

func toStrings(v interface{}) ([]string, error) {
	switch s := v.(type) {
	case []string:
		return s, nil
	case string:
		return []string{s}, nil
	default:
		return nil, fmt.Errorf("expected string list, got %T", v)
	}
}

func toVisibilities(v interface{}) ([]model.Visibility, error) {
	switch vs := v.(type) {
	case []model.Visibility:
		return vs, nil
	case model.Visibility:
		return []model.Visibility{vs}, nil
	case []string:
		out := make([]model.Visibility, len(vs))
		for i, s := range vs {
			out[i] = model.Visibility(s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected visibility list, got %T", v)
	}
}
