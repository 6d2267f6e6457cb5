package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/timeline-engine/internal/model"
)

// RelationshipRepository loads the per-viewer relationship sets the
// visibility filter consumes, plus the follower lists fanout writes to.
type RelationshipRepository interface {
	Follow(ctx context.Context, accountID, targetID int64) error
	Block(ctx context.Context, accountID, targetID int64) error
	Mute(ctx context.Context, accountID, targetID int64) error
	BlockDomain(ctx context.Context, accountID int64, domain string) error

	// FollowerIDs lists accounts following target (fanout recipients).
	FollowerIDs(ctx context.Context, targetID int64) ([]int64, error)
	FollowingIDs(ctx context.Context, accountID int64) ([]int64, error)
	// BlockedIDs: accounts this account blocked. BlockerIDs: accounts
	// that blocked this account.
	BlockedIDs(ctx context.Context, accountID int64) ([]int64, error)
	BlockerIDs(ctx context.Context, accountID int64) ([]int64, error)
	MutedIDs(ctx context.Context, accountID int64) ([]int64, error)
	BlockedDomains(ctx context.Context, accountID int64) ([]string, error)
}

type relationshipRepository struct{ db *gorm.DB }

func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

func (r *relationshipRepository) Follow(ctx context.Context, accountID, targetID int64) error {
	// 幂等：重复关注不报错
	f := &model.Follow{AccountID: accountID, TargetID: targetID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *relationshipRepository) Block(ctx context.Context, accountID, targetID int64) error {
	b := &model.Block{AccountID: accountID, TargetID: targetID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(b).Error
}

func (r *relationshipRepository) Mute(ctx context.Context, accountID, targetID int64) error {
	m := &model.Mute{AccountID: accountID, TargetID: targetID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
}

func (r *relationshipRepository) BlockDomain(ctx context.Context, accountID int64, domain string) error {
	b := &model.DomainBlock{AccountID: accountID, Domain: domain}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(b).Error
}

func (r *relationshipRepository) FollowerIDs(ctx context.Context, targetID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Select("account_id").Where("target_id = ?", targetID).Scan(&ids).Error
	return ids, err
}

func (r *relationshipRepository) FollowingIDs(ctx context.Context, accountID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Select("target_id").Where("account_id = ?", accountID).Scan(&ids).Error
	return ids, err
}

func (r *relationshipRepository) BlockedIDs(ctx context.Context, accountID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Block{}).
		Select("target_id").Where("account_id = ?", accountID).Scan(&ids).Error
	return ids, err
}

func (r *relationshipRepository) BlockerIDs(ctx context.Context, accountID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Block{}).
		Select("account_id").Where("target_id = ?", accountID).Scan(&ids).Error
	return ids, err
}

func (r *relationshipRepository) MutedIDs(ctx context.Context, accountID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Mute{}).
		Select("target_id").Where("account_id = ?", accountID).Scan(&ids).Error
	return ids, err
}

func (r *relationshipRepository) BlockedDomains(ctx context.Context, accountID int64) ([]string, error) {
	var domains []string
	err := r.db.WithContext(ctx).Model(&model.DomainBlock{}).
		Select("domain").Where("account_id = ?", accountID).Scan(&domains).Error
	return domains, err
}

// AccountRepository 账号查询
type AccountRepository interface {
	Get(ctx context.Context, id int64) (*model.Account, error)
	Create(ctx context.Context, account *model.Account) error
}

type accountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &accountRepository{db: db} }

func (r *accountRepository) Get(ctx context.Context, id int64) (*model.Account, error) {
	var a model.Account
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(account).Error
}
