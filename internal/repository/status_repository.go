package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/timeline-engine/internal/model"
)

type StatusRepository interface {
	Create(ctx context.Context, status *model.Status) error
	Delete(ctx context.Context, ids []int64) error
	// GetByIDs hydrates statuses (with mentions) preserving the order of
	// ids; ids with no backing row are silently dropped.
	GetByIDs(ctx context.Context, ids []int64) ([]*model.Status, error)
	Query(ctx context.Context, f StatusFilter) ([]*model.Status, error)
	// NewestIDBefore returns the account's newest status id created
	// strictly before the given time; ok is false when there is none.
	NewestIDBefore(ctx context.Context, accountID int64, before time.Time) (int64, bool, error)
	// RetentionCandidates scans old statuses eligible for cleanup in
	// ascending id order: id within [minID, maxID], excluding every
	// category protected by an active keep flag.
	RetentionCandidates(ctx context.Context, p *model.RetentionPolicy, minID, maxID int64, limit int) ([]*model.Status, error)
}

type statusRepository struct{ db *gorm.DB }

func NewStatusRepository(db *gorm.DB) StatusRepository { return &statusRepository{db: db} }

func (r *statusRepository) Create(ctx context.Context, status *model.Status) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(status).Error
}

func (r *statusRepository) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Status{}).Error
}

func (r *statusRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.Status, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []*model.Status
	if err := r.db.WithContext(ctx).Preload("Mentions").Preload("Account").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.Status, len(rows))
	for _, s := range rows {
		byID[s.ID] = s
	}
	out := make([]*model.Status, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *statusRepository) Query(ctx context.Context, f StatusFilter) ([]*model.Status, error) {
	q := r.db.WithContext(ctx).Model(&model.Status{}).Preload("Mentions").Preload("Account")

	if f.AccountID != 0 {
		q = q.Where("statuses.account_id = ?", f.AccountID)
	}
	if f.FollowedBy != 0 {
		q = q.Where("statuses.account_id IN (?) OR statuses.account_id = ?",
			r.db.Model(&model.Follow{}).Select("target_id").Where("account_id = ?", f.FollowedBy),
			f.FollowedBy)
	}
	if len(f.Visibility) > 0 {
		q = q.Where("statuses.visibility IN ?", f.Visibility)
	}
	if f.MaxID > 0 {
		q = q.Where("statuses.id < ?", f.MaxID)
	}
	if f.MinID > 0 {
		q = q.Where("statuses.id >= ?", f.MinID)
	}
	if f.ExcludeReplies {
		q = q.Where("statuses.in_reply_to_id = 0")
	}
	if f.ExcludeReblogs {
		q = q.Where("statuses.reblog_of_id = 0")
	}

	if f.LocalOnly || f.RemoteOnly || f.ExcludeSilenced || len(f.ExcludeDomains) > 0 {
		q = q.Joins("JOIN accounts ON accounts.id = statuses.account_id")
		if f.LocalOnly {
			q = q.Where("accounts.domain = ''")
		}
		if f.RemoteOnly {
			q = q.Where("accounts.domain <> ''")
		}
		if f.ExcludeSilenced {
			q = q.Where("accounts.silenced = ?", false)
		}
		if len(f.ExcludeDomains) > 0 {
			q = q.Where("accounts.domain NOT IN ?", f.ExcludeDomains)
		}
	}

	if len(f.TagAny) > 0 {
		q = q.Where("statuses.id IN (?)", r.tagStatusIDs(f.TagAny))
	}
	for _, name := range f.TagAll {
		q = q.Where("statuses.id IN (?)", r.tagStatusIDs([]string{name}))
	}
	if len(f.TagNone) > 0 {
		q = q.Where("statuses.id NOT IN (?)", r.tagStatusIDs(f.TagNone))
	}

	if f.GroupID != 0 {
		q = q.Where("statuses.group_id = ?", f.GroupID)
		if f.IncludePendingFrom != 0 {
			q = q.Where("statuses.approval_state = ? OR (statuses.account_id = ? AND statuses.approval_state = ?)",
				model.ApprovalApproved, f.IncludePendingFrom, model.ApprovalPending)
		} else {
			q = q.Where("statuses.approval_state = ?", model.ApprovalApproved)
		}
	}

	if len(f.ExcludeAccountIDs) > 0 {
		q = q.Where("statuses.account_id NOT IN ?", f.ExcludeAccountIDs)
	}
	if len(f.Languages) > 0 {
		q = q.Where("statuses.language = '' OR statuses.language IN ?", f.Languages)
	}

	if f.Ascending {
		q = q.Order("statuses.id ASC")
	} else {
		q = q.Order("statuses.id DESC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []*model.Status
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *statusRepository) tagStatusIDs(names []string) *gorm.DB {
	return r.db.Model(&model.StatusTag{}).
		Select("status_tags.status_id").
		Joins("JOIN tags ON tags.id = status_tags.tag_id").
		Where("tags.name IN ?", names)
}

func (r *statusRepository) NewestIDBefore(ctx context.Context, accountID int64, before time.Time) (int64, bool, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Status{}).
		Select("id").
		Where("account_id = ? AND created_at < ?", accountID, before).
		Order("id DESC").
		Limit(1).
		Scan(&ids).Error
	if err != nil {
		return 0, false, err
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

func (r *statusRepository) RetentionCandidates(ctx context.Context, p *model.RetentionPolicy, minID, maxID int64, limit int) ([]*model.Status, error) {
	q := r.db.WithContext(ctx).Model(&model.Status{}).
		Where("account_id = ?", p.AccountID).
		Where("id <= ?", maxID)
	if minID > 0 {
		q = q.Where("id >= ?", minID)
	}
	if p.KeepDirect {
		q = q.Where("visibility <> ?", model.VisibilityDirect)
	}
	if p.KeepPinned {
		q = q.Where("pinned = ?", false)
	}
	if p.KeepPolls {
		q = q.Where("has_poll = ?", false)
	}
	if p.KeepMedia {
		q = q.Where("has_media = ?", false)
	}
	if p.KeepSelfFav {
		q = q.Where("self_favourited = ?", false)
	}
	if p.KeepSelfBookmark {
		q = q.Where("self_bookmarked = ?", false)
	}
	if p.MinFavs > 0 {
		q = q.Where("favourites_count < ?", p.MinFavs)
	}
	if p.MinReblogs > 0 {
		q = q.Where("reblogs_count < ?", p.MinReblogs)
	}

	var rows []*model.Status
	if err := q.Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
