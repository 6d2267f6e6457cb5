package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/d60-Lab/timeline-engine/config"
	"github.com/d60-Lab/timeline-engine/internal/model"
)

// InitDB 打开主库连接并迁移表结构
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the schema for every entity owned by this service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Account{},
		&model.Status{},
		&model.Mention{},
		&model.Tag{},
		&model.StatusTag{},
		&model.Follow{},
		&model.Block{},
		&model.Mute{},
		&model.DomainBlock{},
		&model.RetentionPolicy{},
		&model.Outbox{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
