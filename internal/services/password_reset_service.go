package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/auth"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/auth/providers"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/crypto"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/mail"
)

const (
	defaultResetExpiry     = time.Hour
	defaultResetTokenBytes = 48
)

// ErrResetTokenInvalid covers unknown, expired and already-used tokens. One
// error keeps responses from confirming whether a token ever existed.
var ErrResetTokenInvalid = errors.New("password reset: token invalid")

// PasswordResetService issues and redeems single-use reset tokens.
type PasswordResetService struct {
	db       *gorm.DB
	mailer   mail.Mailer
	provider *providers.LocalProvider
	expiry   time.Duration
	now      func() time.Time
}

// NewPasswordResetService constructs the service.
func NewPasswordResetService(db *gorm.DB, mailer mail.Mailer, provider *providers.LocalProvider) (*PasswordResetService, error) {
	if db == nil {
		return nil, errors.New("password reset service: db is required")
	}
	if provider == nil {
		return nil, errors.New("password reset service: local provider is required")
	}
	return &PasswordResetService{
		db:       db,
		mailer:   mailer,
		provider: provider,
		expiry:   defaultResetExpiry,
		now:      time.Now,
	}, nil
}

// WithClock substitutes the time source, for tests.
func (s *PasswordResetService) WithClock(now func() time.Time) *PasswordResetService {
	if now != nil {
		s.now = now
	}
	return s
}

// Request issues a reset token for the email when an eligible account
// exists. It reports success either way so responses do not reveal which
// emails are registered.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("password reset service: query user: %w", err)
	}
	if !user.EmailVerified {
		return nil
	}

	raw, err := crypto.GenerateToken(defaultResetTokenBytes)
	if err != nil {
		return fmt.Errorf("password reset service: generate token: %w", err)
	}

	token := &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: crypto.HashAPIKey(raw),
		ExpiresAt: s.now().Add(s.expiry),
	}
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("password reset service: store token: %w", err)
	}

	if s.mailer != nil {
		msg := mail.Message{
			To:      user.Email,
			Subject: "Password reset",
			Body: fmt.Sprintf("Use this token to reset your password: %s\nIt expires in %d minutes.",
				raw, int(s.expiry.Minutes())),
		}
		if err := s.mailer.Send(ctx, msg); err != nil && !errors.Is(err, mail.ErrDisabled) {
			return fmt.Errorf("password reset service: send token: %w", err)
		}
	}

	return nil
}

// Confirm redeems a reset token and sets the new password. The token is
// marked used first so a second redemption fails, and the account's lockout
// state is cleared along with the password change.
func (s *PasswordResetService) Confirm(ctx context.Context, rawToken, newPassword string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return ErrResetTokenInvalid
	}

	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}

	var token models.PasswordResetToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", crypto.HashAPIKey(rawToken)).
		Take(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("password reset service: query token: %w", err)
	}

	now := s.now()
	if !token.IsUsable(now) {
		return ErrResetTokenInvalid
	}

	result := s.db.WithContext(ctx).Model(&models.PasswordResetToken{}).
		Where("id = ? AND used_at IS NULL", token.ID).
		Update("used_at", now)
	if result.Error != nil {
		return fmt.Errorf("password reset service: consume token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrResetTokenInvalid
	}

	return s.provider.ChangePassword(token.UserID, "", newPassword)
}

// PurgeExpired removes expired and used tokens.
func (s *PasswordResetService) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", s.now()).
		Delete(&models.PasswordResetToken{})
	return result.RowsAffected, result.Error
}
