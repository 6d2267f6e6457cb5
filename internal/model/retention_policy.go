package model

import "time"

// RetentionPolicy 账号级自动清理策略。keep_* 为真的类别不参与删除；
// MinFavs/MinReblogs 为 0 表示不按互动数保留。
type RetentionPolicy struct {
	ID               int64         `gorm:"primaryKey"`
	AccountID        int64         `gorm:"uniqueIndex;not null"`
	MinStatusAge     time.Duration `gorm:"not null"`
	KeepDirect       bool
	KeepPinned       bool
	KeepPolls        bool
	KeepMedia        bool
	KeepSelfFav      bool
	KeepSelfBookmark bool
	MinFavs          int64
	MinReblogs       int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (RetentionPolicy) TableName() string { return "retention_policies" }

// WidenedFrom reports whether the policy now admits statuses that the
// previous version protected, which invalidates the scan cursor.
func (p *RetentionPolicy) WidenedFrom(old *RetentionPolicy) bool {
	switch {
	case old.KeepDirect && !p.KeepDirect,
		old.KeepPinned && !p.KeepPinned,
		old.KeepPolls && !p.KeepPolls,
		old.KeepMedia && !p.KeepMedia,
		old.KeepSelfFav && !p.KeepSelfFav,
		old.KeepSelfBookmark && !p.KeepSelfBookmark:
		return true
	}
	// Raising a minimum-interaction bar (or disabling it) also widens:
	// statuses previously kept for having enough favs/reblogs become
	// eligible again.
	if old.MinFavs != 0 && (p.MinFavs == 0 || p.MinFavs > old.MinFavs) {
		return true
	}
	if old.MinReblogs != 0 && (p.MinReblogs == 0 || p.MinReblogs > old.MinReblogs) {
		return true
	}
	return false
}
