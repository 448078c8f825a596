package models

import (
	"time"

	"gorm.io/datatypes"
)

// APIKey is a long-lived machine credential. Only a SHA-256 hash of the raw
// key is stored; Permissions is the subset of the owner's permissions the
// key may exercise.
type APIKey struct {
	BaseModel

	Name       string `gorm:"not null" json:"name"`
	KeyHash    string `gorm:"uniqueIndex;not null" json:"-"`
	KeyPreview string `gorm:"not null" json:"key_preview"`

	UserID string `gorm:"type:uuid;index;not null" json:"user_id"`
	User   *User  `json:"-"`

	Permissions datatypes.JSONSlice[string] `json:"permissions"`

	IsActive   bool       `gorm:"default:true" json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

// IsExpired reports whether the key has passed its expiry at the given instant.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// Allows reports whether the key's permission subset contains the named
// permission. The owner's role level is deliberately not consulted.
func (k *APIKey) Allows(name string) bool {
	for _, p := range k.Permissions {
		if p == name {
			return true
		}
	}
	return false
}
