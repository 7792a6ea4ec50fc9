package users

import (
	"strings"
	"time"
)

// Account maps a sign-in email onto the user id that owns a profile and a dataset.
type Account struct {
	UserID       string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;size:100;not null"`
	LastSeenAt   time.Time `gorm:"column:last_seen_at"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing sign-in accounts.
func (Account) TableName() string {
	return "user_accounts"
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
