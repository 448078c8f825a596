package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account holder. Role drives authorization, Rank is a cosmetic
// community level earned through activity.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FullName string `json:"full_name"`
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar"`

	IsActive      bool `gorm:"default:false" json:"is_active"`
	EmailVerified bool `gorm:"default:false" json:"email_verified"`

	RoleID string `gorm:"type:uuid;index;not null" json:"role_id"`
	Role   *Role  `json:"role,omitempty"`

	RankID *string `gorm:"type:uuid;index" json:"rank_id"`
	Rank   *Rank   `json:"rank,omitempty"`

	TotalComments      int `gorm:"default:0" json:"total_comments"`
	TotalLikesReceived int `gorm:"default:0" json:"total_likes_received"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"-"`

	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsLocked reports whether the account is locked out at the given instant.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
