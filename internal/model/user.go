package model

import "time"

// User はidentityストアに保存されるユーザー資格情報を表す。
// EmailはユーザーIDとしても使用する。
type User struct {
	ID                string
	Email             string
	NormalizedEmail   string
	PasswordHash      string
	EmailConfirmed    bool
	AccessFailedCount int
	LockoutEnd        *time.Time
	LockoutEnabled    bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsLockedOut はnow時点でロックアウト中かどうかを返す。
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// Claim はユーザーに付与された認可用の名前/値ペア。
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
