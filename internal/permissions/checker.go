package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/metrics"
)

// Identity is a resolved caller. For token authenticated requests the
// role's permission set applies, including the admin level bypass. For API
// key requests only the key's own permission subset applies; the owner's
// role never widens what a key may do.
type Identity struct {
	UserID   string
	Username string
	Role     *models.Role
	Rank     *models.Rank
	APIKey   *models.APIKey
}

// HasPermission reports whether this identity may perform the named action.
func (id *Identity) HasPermission(token string) bool {
	if id == nil {
		return false
	}
	if id.APIKey != nil {
		return id.APIKey.Allows(token)
	}
	return id.Role.HasPermission(token)
}

// Level reports the role level, or zero when no role is attached.
func (id *Identity) Level() int {
	if id == nil || id.Role == nil {
		return 0
	}
	return id.Role.Level
}

// Checker resolves identities and evaluates permission tokens against the
// current role snapshot. Permissions are always read from the database at
// request time so a role change takes effect without waiting for token expiry.
type Checker struct {
	db *gorm.DB
}

// NewChecker constructs a permission checker backed by the provided database.
func NewChecker(db *gorm.DB) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permission checker: db is required")
	}
	return &Checker{db: db}, nil
}

// ResolveUser loads the user's current role and rank and returns an identity.
// Deactivated accounts resolve to ErrAccountInactive regardless of a valid token.
func (c *Checker) ResolveUser(ctx context.Context, userID string) (*Identity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, appErrors.ErrUnauthorized
	}

	var user models.User
	err := c.db.WithContext(ctx).
		Preload("Role").
		Preload("Rank").
		Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("permission checker: load user: %w", err)
	}

	if !user.IsActive {
		return nil, appErrors.ErrAccountInactive
	}

	return &Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Rank:     user.Rank,
	}, nil
}

// Check evaluates a permission token against the identity and records the outcome.
func (c *Checker) Check(identity *Identity, token string) bool {
	token = strings.TrimSpace(token)
	allowed := token != "" && identity.HasPermission(token)

	result := "deny"
	if allowed {
		result = "allow"
	}
	metrics.PermissionChecks.WithLabelValues(token, result).Inc()

	return allowed
}

// Require returns ErrForbidden when the identity lacks the permission.
func (c *Checker) Require(identity *Identity, token string) error {
	if !c.Check(identity, token) {
		return appErrors.ErrForbidden
	}
	return nil
}
