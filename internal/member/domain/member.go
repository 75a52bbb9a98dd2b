package domain

import (
	"errors"
	"time"
)

var (
	// ErrMemberNotFound no member with the given member id
	ErrMemberNotFound = errors.New("member not found")
	// ErrNeverSeen member exists but never disconnected
	ErrNeverSeen = errors.New("member has no last seen record")
)

// Member 用來表示使用者, 聊天服務只讀寫身分, 顯示名稱, 頭像網址與最後上線時間
// 帳號密碼與 OAuth 屬於 member service
type Member struct {
	ID         uint       `gorm:"primaryKey" json:"-"`
	MemberID   string     `gorm:"uniqueIndex;size:64;not null" json:"_id"`
	Email      string     `gorm:"uniqueIndex;size:255" json:"email"`
	FullName   string     `gorm:"size:255" json:"fullName"`
	ProfilePic string     `gorm:"size:1024" json:"profilePic"`
	LastSeen   *time.Time `json:"lastSeen"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// TableName gorm table
func (Member) TableName() string {
	return "members"
}
