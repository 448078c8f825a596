package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/crypto"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/mail"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/metrics"
)

const (
	defaultCodeExpiry = 15 * time.Minute
	// maxCodeAttempts bounds guessing against a single issued code. The
	// sixth wrong try burns the code and forces a resend.
	maxCodeAttempts = 5
)

var (
	// ErrCodeInvalid covers both unknown emails and wrong codes.
	ErrCodeInvalid = errors.New("verification: code invalid")
	// ErrCodeExpired means the code was correct but past its expiry.
	ErrCodeExpired = errors.New("verification: code expired")
)

// VerificationOption customises the VerificationService.
type VerificationOption func(*VerificationService)

// WithCodeExpiry overrides the code lifetime.
func WithCodeExpiry(d time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithVerificationClock injects a custom time source.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// VerificationService manages short numeric email verification codes. At
// most one active code exists per email; issuing replaces any previous one.
type VerificationService struct {
	db     *gorm.DB
	mailer mail.Mailer
	expiry time.Duration
	now    func() time.Time
}

// NewVerificationService constructs the service.
func NewVerificationService(db *gorm.DB, mailer mail.Mailer, opts ...VerificationOption) (*VerificationService, error) {
	if db == nil {
		return nil, errors.New("verification service: db is required")
	}

	service := &VerificationService{
		db:     db,
		mailer: mailer,
		expiry: defaultCodeExpiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Expiry reports the configured code lifetime.
func (s *VerificationService) Expiry() time.Duration {
	return s.expiry
}

// Issue creates a fresh code for the email, replacing any existing one, and
// dispatches it by mail. Only a bcrypt hash of the code is persisted.
func (s *VerificationService) Issue(ctx context.Context, email string) (time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return time.Time{}, errors.New("verification service: email is required")
	}

	code, err := crypto.GenerateVerificationCode()
	if err != nil {
		return time.Time{}, fmt.Errorf("verification service: generate code: %w", err)
	}

	hash, err := crypto.HashPassword(code)
	if err != nil {
		return time.Time{}, fmt.Errorf("verification service: hash code: %w", err)
	}

	expiresAt := s.now().Add(s.expiry)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).Delete(&models.VerificationCode{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.VerificationCode{
			Email:     email,
			CodeHash:  hash,
			ExpiresAt: expiresAt,
		}).Error
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("verification service: store code: %w", err)
	}

	metrics.VerificationCodes.WithLabelValues("issued").Inc()

	if s.mailer != nil {
		msg := mail.Message{
			To:      email,
			Subject: "Your verification code",
			Body: fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
				code, int(s.expiry.Minutes())),
		}
		if err := s.mailer.Send(ctx, msg); err != nil && !errors.Is(err, mail.ErrDisabled) {
			return time.Time{}, fmt.Errorf("verification service: send code: %w", err)
		}
	}

	return expiresAt, nil
}

// Verify checks the code for the email. A wrong code does not consume the
// stored one (until the attempt cap), and an expired code is deleted.
func (s *VerificationService) Verify(ctx context.Context, email, code string) error {
	return s.VerifyAndConfirm(ctx, email, code, nil)
}

// VerifyAndConfirm checks the code and, when it matches, consumes it and
// runs confirm inside the same transaction, so the consumption and the
// caller's state change commit or roll back together. Bookkeeping for
// failed checks (deleting an expired row, counting attempts, burning the
// code after too many wrong tries) is committed even though the caller
// still gets an error, so those writes cannot be undone by the rollback
// the error would otherwise trigger.
func (s *VerificationService) VerifyAndConfirm(ctx context.Context, email, code string, confirm func(tx *gorm.DB) error) error {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return ErrCodeInvalid
	}

	// Failure outcome to report after the transaction commits.
	var outcome error

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.VerificationCode
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ?", email).Take(&stored).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = ErrCodeInvalid
			return nil
		}
		if err != nil {
			return fmt.Errorf("verification service: query code: %w", err)
		}

		if stored.IsExpired(s.now()) {
			if err := tx.Delete(&stored).Error; err != nil {
				return fmt.Errorf("verification service: delete expired code: %w", err)
			}
			metrics.VerificationCodes.WithLabelValues("expired").Inc()
			outcome = ErrCodeExpired
			return nil
		}

		if !crypto.VerifyPassword(stored.CodeHash, code) {
			metrics.VerificationCodes.WithLabelValues("mismatch").Inc()
			stored.Attempts++
			if stored.Attempts >= maxCodeAttempts {
				if err := tx.Delete(&stored).Error; err != nil {
					return fmt.Errorf("verification service: burn code: %w", err)
				}
				outcome = ErrCodeInvalid
				return nil
			}
			if err := tx.Model(&stored).Update("attempts", stored.Attempts).Error; err != nil {
				return fmt.Errorf("verification service: record attempt: %w", err)
			}
			outcome = ErrCodeInvalid
			return nil
		}

		if err := tx.Delete(&stored).Error; err != nil {
			return fmt.Errorf("verification service: consume code: %w", err)
		}
		if confirm != nil {
			if err := confirm(tx); err != nil {
				return err
			}
		}
		metrics.VerificationCodes.WithLabelValues("consumed").Inc()
		return nil
	})
	if err != nil {
		return err
	}
	return outcome
}

// PurgeExpired removes expired codes. Correctness never depends on this
// sweep; Verify already rejects expired rows.
func (s *VerificationService) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.VerificationCode{})
	return result.RowsAffected, result.Error
}
