package providers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/crypto"
)

var (
	// ErrInvalidCredentials is returned for a bad email/password pair. The
	// same error covers unknown emails so responses cannot be used to
	// enumerate accounts.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountLocked signals that the user exceeded the permitted failed attempts.
	ErrAccountLocked = errors.New("auth: account locked")
	// ErrAccountInactive signals a deactivated account.
	ErrAccountInactive = errors.New("auth: account inactive")
	// ErrEmailNotVerified signals that the email verification flow is incomplete.
	ErrEmailNotVerified = errors.New("auth: email not verified")
)

// AccountLockedError carries the lockout deadline so handlers can report the
// remaining duration. It unwraps to ErrAccountLocked.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("auth: account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *AccountLockedError) Unwrap() error { return ErrAccountLocked }

// dummyHash is compared against when the email is unknown, so that lookups
// for existing and missing accounts take comparable time.
var dummyHash = func() string {
	h, err := crypto.HashPassword("timing-equalizer")
	if err != nil {
		panic(err)
	}
	return h
}()

// LocalConfig defines tunable lockout behaviour for the local provider.
type LocalConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	Clock            func() time.Time
}

// AuthenticateInput contains the credentials and request metadata for a login.
type AuthenticateInput struct {
	Email     string
	Password  string
	IPAddress string
}

// LocalProvider implements email/password authentication with account
// lockout controls.
type LocalProvider struct {
	db        *gorm.DB
	clock     func() time.Time
	threshold int
	duration  time.Duration
}

// NewLocalProvider builds a provider with the default 5 attempts / 30 minute
// lockout when the config leaves those unset.
func NewLocalProvider(db *gorm.DB, cfg LocalConfig) (*LocalProvider, error) {
	if db == nil {
		return nil, errors.New("local provider: db is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = 5
	}

	duration := cfg.LockoutDuration
	if duration <= 0 {
		duration = 30 * time.Minute
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &LocalProvider{
		db:        db,
		clock:     clock,
		threshold: threshold,
		duration:  duration,
	}, nil
}

// Authenticate verifies the supplied credentials and returns the user when
// successful. Check order: existence, lockout, password, activation,
// verification. The lockout check precedes password verification so a locked
// account leaks nothing about the password supplied.
func (p *LocalProvider) Authenticate(input AuthenticateInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := p.db.Preload("Role").Preload("Rank").
		Where("LOWER(email) = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Burn a comparison so unknown emails cost the same as wrong passwords.
		crypto.VerifyPassword(dummyHash, input.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("local provider: query user: %w", err)
	}

	now := p.clock()

	if user.IsLocked(now) {
		return nil, &AccountLockedError{Until: *user.LockedUntil}
	}

	// Lazily clear an elapsed lockout.
	if user.LockedUntil != nil {
		user.LockedUntil = nil
		user.FailedAttempts = 0
		if err := p.db.Model(&user).Updates(map[string]any{
			"locked_until":    nil,
			"failed_attempts": 0,
		}).Error; err != nil {
			return nil, fmt.Errorf("local provider: reset lock state: %w", err)
		}
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		return nil, p.recordFailedAttempt(&user, now)
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	user.FailedAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	user.LastLoginIP = strings.TrimSpace(input.IPAddress)

	if err := p.db.Model(&user).Updates(map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   user.LastLoginIP,
	}).Error; err != nil {
		return nil, fmt.Errorf("local provider: update user: %w", err)
	}

	return &user, nil
}

// recordFailedAttempt increments the counter inside a transaction so two
// concurrent failures cannot both read the same count and skip the lock.
func (p *LocalProvider) recordFailedAttempt(user *models.User, now time.Time) error {
	var lockedUntil *time.Time

	err := p.db.Transaction(func(tx *gorm.DB) error {
		var current models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&current, "id = ?", user.ID).Error
		if err != nil {
			return err
		}

		current.FailedAttempts++
		updates := map[string]any{
			"failed_attempts": current.FailedAttempts,
		}

		if current.FailedAttempts >= p.threshold {
			until := now.Add(p.duration)
			lockedUntil = &until
			updates["locked_until"] = until
		}

		return tx.Model(&current).Updates(updates).Error
	})
	if err != nil {
		return fmt.Errorf("local provider: update failed attempts: %w", err)
	}

	if lockedUntil != nil {
		return &AccountLockedError{Until: *lockedUntil}
	}

	return ErrInvalidCredentials
}

// ChangePassword swaps a user's password after verifying the current one.
// currentPassword may be empty when the caller already proved ownership
// through a reset token.
func (p *LocalProvider) ChangePassword(userID, currentPassword, newPassword string) error {
	if strings.TrimSpace(userID) == "" || newPassword == "" {
		return errors.New("local provider: user id and new password are required")
	}

	var user models.User
	if err := p.db.Take(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("local provider: find user: %w", err)
	}

	if currentPassword != "" && !crypto.VerifyPassword(user.Password, currentPassword) {
		return ErrInvalidCredentials
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("local provider: hash password: %w", err)
	}

	if err := p.db.Model(&user).Updates(map[string]any{
		"password":        hashed,
		"failed_attempts": 0,
		"locked_until":    nil,
	}).Error; err != nil {
		return fmt.Errorf("local provider: update password: %w", err)
	}

	return nil
}
