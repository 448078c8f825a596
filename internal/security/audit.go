package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/app"
	iauth "github.com/KGR33N-dev/Portfolio-Backend/internal/auth"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a simple status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// AuditService evaluates core security controls and configuration.
type AuditService struct {
	db     *gorm.DB
	tokens *iauth.TokenService
	cfg    *app.Config
	now    func() time.Time
}

// NewAuditService constructs the audit service. All dependencies are optional; missing
// inputs degrade specific checks to warnings.
func NewAuditService(db *gorm.DB, tokens *iauth.TokenService, cfg *app.Config) *AuditService {
	return &AuditService{
		db:     db,
		tokens: tokens,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithClock overrides the clock used in results (primarily for testing).
func (s *AuditService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes all audit checks and returns their outcome.
func (s *AuditService) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkAdminUser(ctx),
		s.checkJWTSecret(),
		s.checkMailDelivery(),
		s.checkRefreshTTL(),
		s.checkLockoutPolicy(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}

	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: s.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func (s *AuditService) checkAdminUser(ctx context.Context) Check {
	if s.db == nil {
		return Check{
			ID:          "admin_user_present",
			Status:      StatusWarn,
			Message:     "Database unavailable, unable to confirm admin user presence.",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.level >= ? AND users.is_active = ?", models.AdminLevel, true).
		Count(&count).Error; err != nil {
		return Check{
			ID:          "admin_user_present",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not verify admin users: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}

	if count == 0 {
		return Check{
			ID:          "admin_user_present",
			Status:      StatusFail,
			Message:     "No active admin user found.",
			Remediation: "Promote at least one active account to the admin role so the instance stays manageable.",
		}
	}

	return Check{
		ID:      "admin_user_present",
		Status:  StatusPass,
		Message: "Admin user present.",
		Details: map[string]any{"count": count},
	}
}

func (s *AuditService) checkJWTSecret() Check {
	if s.tokens == nil {
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusWarn,
			Message:     "Token service not initialised, unable to assess signing secret strength.",
			Remediation: "Initialise the token service with a strong secret.",
		}
	}

	length := s.tokens.SecretLength()

	switch {
	case length == 0:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusFail,
			Message:     "Missing JWT signing secret.",
			Remediation: "Provide a cryptographically secure signing secret (>= 32 bytes).",
		}
	case length < 32:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
		}
	case length < 48:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider increasing to 48+ bytes.", length),
			Remediation: "Increase the length of PORTFOLIO_AUTH_JWT_SECRET to at least 48 bytes.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      "jwt_secret_strength",
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func (s *AuditService) checkMailDelivery() Check {
	if s.cfg == nil {
		return Check{
			ID:          "mail_delivery",
			Status:      StatusWarn,
			Message:     "Configuration not loaded, unable to verify mail delivery.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	smtp := s.cfg.Email.SMTP
	if !smtp.Enabled {
		return Check{
			ID:          "mail_delivery",
			Status:      StatusWarn,
			Message:     "SMTP delivery is disabled; verification and reset emails are only written to the log.",
			Remediation: "Enable SMTP (PORTFOLIO_EMAIL_SMTP_*) before exposing the instance to real users.",
		}
	}

	if strings.TrimSpace(smtp.Host) == "" || strings.TrimSpace(smtp.From) == "" {
		return Check{
			ID:          "mail_delivery",
			Status:      StatusFail,
			Message:     "SMTP is enabled but host or sender address is missing.",
			Remediation: "Set PORTFOLIO_EMAIL_SMTP_HOST and PORTFOLIO_EMAIL_SMTP_FROM.",
		}
	}

	return Check{
		ID:      "mail_delivery",
		Status:  StatusPass,
		Message: fmt.Sprintf("SMTP delivery configured via %s.", smtp.Host),
	}
}

func (s *AuditService) checkRefreshTTL() Check {
	if s.cfg == nil {
		return Check{
			ID:          "refresh_token_ttl",
			Status:      StatusWarn,
			Message:     "Configuration not loaded, unable to evaluate refresh token lifetime.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	ttl := s.cfg.Auth.JWT.RefreshTTL
	if ttl <= 0 {
		return Check{
			ID:          "refresh_token_ttl",
			Status:      StatusWarn,
			Message:     "Refresh token TTL is not configured; the built-in default applies.",
			Remediation: "Set PORTFOLIO_AUTH_JWT_REFRESH_TOKEN_TTL to control session lifetime.",
		}
	}

	const maxRecommended = 30 * 24 * time.Hour

	if ttl > maxRecommended {
		return Check{
			ID:          "refresh_token_ttl",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Refresh token TTL (%s) exceeds recommended maximum (%s).", ttl, maxRecommended),
			Remediation: "Reduce refresh token TTL to 30 days or lower to limit credential exposure.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}

	return Check{
		ID:      "refresh_token_ttl",
		Status:  StatusPass,
		Message: fmt.Sprintf("Refresh token TTL is %s.", ttl),
		Details: map[string]any{"ttl": ttl.String()},
	}
}

func (s *AuditService) checkLockoutPolicy() Check {
	if s.cfg == nil {
		return Check{
			ID:          "account_lockout",
			Status:      StatusWarn,
			Message:     "Configuration not loaded, unable to evaluate the lockout policy.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	local := s.cfg.Auth.Local
	if local.LockoutThreshold <= 0 {
		return Check{
			ID:          "account_lockout",
			Status:      StatusFail,
			Message:     "Account lockout is disabled; failed logins are never throttled per account.",
			Remediation: "Set PORTFOLIO_AUTH_LOCAL_LOCKOUT_THRESHOLD to a positive value (default 5).",
		}
	}

	if local.LockoutDuration <= 0 {
		return Check{
			ID:          "account_lockout",
			Status:      StatusWarn,
			Message:     "Lockout duration is not configured; the built-in default applies.",
			Remediation: "Set PORTFOLIO_AUTH_LOCAL_LOCKOUT_DURATION explicitly.",
		}
	}

	return Check{
		ID:      "account_lockout",
		Status:  StatusPass,
		Message: fmt.Sprintf("Accounts lock after %d failed attempts for %s.", local.LockoutThreshold, local.LockoutDuration),
		Details: map[string]any{"threshold": local.LockoutThreshold, "duration": local.LockoutDuration.String()},
	}
}
