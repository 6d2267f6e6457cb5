package model

import "time"

// Account 账号（本地账号 Domain 为空）
type Account struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"`
	Username  string `gorm:"type:varchar(64);index:idx_account_handle"`
	Domain    string `gorm:"type:varchar(255);index:idx_account_handle"`
	Silenced  bool
	Languages StringList `gorm:"type:text"` // chosen feed languages, empty = all
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Account) TableName() string { return "accounts" }

// Local reports whether the account belongs to this instance.
func (a *Account) Local() bool { return a.Domain == "" }

// Follow 关注关系（A 关注 B）
type Follow struct {
	ID        int64 `gorm:"primaryKey"`
	AccountID int64 `gorm:"index:idx_follow_account;uniqueIndex:ux_follow_pair;not null"`
	TargetID  int64 `gorm:"uniqueIndex:ux_follow_pair;not null"`
	// 复合唯一键，避免重复关注
	// ux_follow_pair = (account_id, target_id)
	CreatedAt time.Time
}

func (Follow) TableName() string { return "follows" }

// Block 拉黑关系
type Block struct {
	ID        int64 `gorm:"primaryKey"`
	AccountID int64 `gorm:"index:idx_block_account;uniqueIndex:ux_block_pair;not null"`
	TargetID  int64 `gorm:"index:idx_block_target;uniqueIndex:ux_block_pair;not null"`
	CreatedAt time.Time
}

func (Block) TableName() string { return "blocks" }

// Mute 静音关系
type Mute struct {
	ID        int64 `gorm:"primaryKey"`
	AccountID int64 `gorm:"index:idx_mute_account;uniqueIndex:ux_mute_pair;not null"`
	TargetID  int64 `gorm:"uniqueIndex:ux_mute_pair;not null"`
	CreatedAt time.Time
}

func (Mute) TableName() string { return "mutes" }

// DomainBlock 账号级域名屏蔽
type DomainBlock struct {
	ID        int64  `gorm:"primaryKey"`
	AccountID int64  `gorm:"index:idx_domain_block_account;uniqueIndex:ux_domain_block;not null"`
	Domain    string `gorm:"type:varchar(255);uniqueIndex:ux_domain_block;not null"`
	CreatedAt time.Time
}

func (DomainBlock) TableName() string { return "account_domain_blocks" }
