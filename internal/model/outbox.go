package model

import "time"

const (
	OutboxPending    = "pending"
	OutboxProcessing = "processing"
	OutboxDone       = "done"
)

// Outbox 事件外发盒：发布事务内落地，由 fanout worker 消费
type Outbox struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	StatusID    int64     `gorm:"uniqueIndex"`
	AccountID   int64     `gorm:"index:idx_outbox_account"`
	CreatedAt   time.Time `gorm:"index"`
	Status      string    `gorm:"type:varchar(16);index"` // pending, processing, done
	ProcessedAt *time.Time
	FanoutCount int64
}

func (Outbox) TableName() string { return "outbox" }
