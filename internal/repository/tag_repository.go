package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/timeline-engine/internal/model"
)

type TagRepository interface {
	FindOrCreate(ctx context.Context, name string) (*model.Tag, error)
	GetByName(ctx context.Context, name string) (*model.Tag, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.Tag, error)
	// RecordMaxScore persists a new high-water mark.
	RecordMaxScore(ctx context.Context, id int64, score float64, at time.Time) error
	// Attach links a status to the named tags, creating them as needed.
	Attach(ctx context.Context, statusID int64, names []string) error
	NamesForStatus(ctx context.Context, statusID int64) ([]string, error)
}

type tagRepository struct{ db *gorm.DB }

func NewTagRepository(db *gorm.DB) TagRepository { return &tagRepository{db: db} }

func (r *tagRepository) FindOrCreate(ctx context.Context, name string) (*model.Tag, error) {
	var tag model.Tag
	err := r.db.WithContext(ctx).Where("name = ?", name).
		Attrs(model.Tag{Name: name, Trendable: true}).
		FirstOrCreate(&tag).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) GetByName(ctx context.Context, name string) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.WithContext(ctx).First(&tag, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []*model.Tag
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error
	return tags, err
}

func (r *tagRepository) RecordMaxScore(ctx context.Context, id int64, score float64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Tag{}).Where("id = ?", id).
		Updates(map[string]interface{}{"max_score": score, "max_score_at": at}).Error
}

func (r *tagRepository) Attach(ctx context.Context, statusID int64, names []string) error {
	for _, name := range names {
		tag, err := r.FindOrCreate(ctx, name)
		if err != nil {
			return err
		}
		st := &model.StatusTag{StatusID: statusID, TagID: tag.ID}
		if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(st).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *tagRepository) NamesForStatus(ctx context.Context, statusID int64) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&model.StatusTag{}).
		Select("tags.name").
		Joins("JOIN tags ON tags.id = status_tags.tag_id").
		Where("status_tags.status_id = ?", statusID).
		Scan(&names).Error
	return names, err
}
