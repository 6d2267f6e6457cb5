package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/timeline-engine/internal/model"
)

// RetentionRepository 清理策略存取
type RetentionRepository interface {
	Get(ctx context.Context, accountID int64) (*model.RetentionPolicy, error)
	Upsert(ctx context.Context, policy *model.RetentionPolicy) error
	List(ctx context.Context) ([]*model.RetentionPolicy, error)
}

type retentionRepository struct{ db *gorm.DB }

func NewRetentionRepository(db *gorm.DB) RetentionRepository {
	return &retentionRepository{db: db}
}

func (r *retentionRepository) Get(ctx context.Context, accountID int64) (*model.RetentionPolicy, error) {
	var p model.RetentionPolicy
	if err := r.db.WithContext(ctx).First(&p, "account_id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *retentionRepository) Upsert(ctx context.Context, policy *model.RetentionPolicy) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		UpdateAll: true,
	}).Create(policy).Error
}

func (r *retentionRepository) List(ctx context.Context) ([]*model.RetentionPolicy, error) {
	var out []*model.RetentionPolicy
	err := r.db.WithContext(ctx).Find(&out).Error
	return out, err
}
