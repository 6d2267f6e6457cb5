package model

import "time"

// Visibility 帖子可见级别
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
	VisibilityDirect   Visibility = "direct"
	VisibilityGroup    Visibility = "group"
)

// ApprovalState moderation state for group-scoped statuses.
type ApprovalState string

const (
	ApprovalApproved ApprovalState = "approved"
	ApprovalPending  ApprovalState = "pending"
	ApprovalRejected ApprovalState = "rejected"
	ApprovalRevoked  ApprovalState = "revoked"
)

// Status 内容主体。ID 随发布时间严格递增，可直接作为排序键。
type Status struct {
	ID              int64         `gorm:"primaryKey;autoIncrement:false"`
	AccountID       int64         `gorm:"index:idx_status_account;not null"`
	GroupID         int64         `gorm:"index:idx_status_group"`
	Visibility      Visibility    `gorm:"type:varchar(16);index;not null"`
	ApprovalState   ApprovalState `gorm:"type:varchar(16)"`
	InReplyToID     int64
	ReblogOfID      int64
	Language        string `gorm:"type:varchar(8)"`
	HasMedia        bool
	HasPoll         bool
	Pinned          bool
	SelfFavourited  bool
	SelfBookmarked  bool
	FavouritesCount int64
	ReblogsCount    int64
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time

	Account  *Account  `gorm:"foreignKey:AccountID"`
	Mentions []Mention `gorm:"foreignKey:StatusID"`
}

func (Status) TableName() string { return "statuses" }

// Reply reports whether the status is a reply to another status.
func (s *Status) Reply() bool { return s.InReplyToID != 0 }

// Reblog reports whether the status is a boost of another status.
func (s *Status) Reblog() bool { return s.ReblogOfID != 0 }

// MentionsAccount reports whether accountID is mentioned by the status.
// Requires Mentions to be preloaded.
func (s *Status) MentionsAccount(accountID int64) bool {
	for _, m := range s.Mentions {
		if m.AccountID == accountID {
			return true
		}
	}
	return false
}

// Mention 帖子中提及的账号
type Mention struct {
	ID        int64 `gorm:"primaryKey"`
	StatusID  int64 `gorm:"index:idx_mention_status;uniqueIndex:ux_mention_status_account"`
	AccountID int64 `gorm:"uniqueIndex:ux_mention_status_account"`
}

func (Mention) TableName() string { return "mentions" }
