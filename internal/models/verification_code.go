package models

import "time"

// VerificationCode stores a bcrypt hash of a short-lived email verification
// code. At most one active code exists per email; issuing a new one replaces
// the previous row.
type VerificationCode struct {
	BaseModel

	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	CodeHash  string    `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	Attempts  int       `gorm:"default:0" json:"-"`
}

// IsExpired reports whether the code is past its expiry at the given instant.
func (v *VerificationCode) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
