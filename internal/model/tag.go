package model

import "time"

// Tag 话题标签。MaxScore/MaxScoreAt 为 trending 打分的历史高水位。
type Tag struct {
	ID         int64  `gorm:"primaryKey"`
	Name       string `gorm:"type:varchar(255);uniqueIndex;not null"`
	Trendable  bool   `gorm:"default:true"`
	MaxScore   float64
	MaxScoreAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Tag) TableName() string { return "tags" }

// StatusTag 帖子与标签的关联
type StatusTag struct {
	StatusID int64 `gorm:"primaryKey;autoIncrement:false"`
	TagID    int64 `gorm:"primaryKey;autoIncrement:false;index:idx_status_tag_tag"`
}

func (StatusTag) TableName() string { return "status_tags" }
