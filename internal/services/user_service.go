package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/auth"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/crypto"
	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
)

// RegisterInput captures the details required to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Bio      string
}

// UserService creates and maintains user accounts.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Register creates a new inactive, unverified user with the default role and
// rank. Duplicate usernames and emails surface as ErrConflict; the password
// policy is enforced before anything is written.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" || input.Password == "" {
		return nil, appErrors.NewValidation("username, email and password are required")
	}

	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	var role models.Role
	if err := s.db.WithContext(ctx).Where("name = ?", "user").Take(&role).Error; err != nil {
		return nil, fmt.Errorf("user service: load default role: %w", err)
	}

	var rankID *string
	var rank models.Rank
	err = s.db.WithContext(ctx).Where("name = ?", "newbie").Take(&rank).Error
	if err == nil {
		rankID = &rank.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user service: load default rank: %w", err)
	}

	user := &models.User{
		Username:      username,
		Email:         email,
		Password:      hashed,
		FullName:      strings.TrimSpace(input.FullName),
		Bio:           strings.TrimSpace(input.Bio),
		RoleID:        role.ID,
		RankID:        rankID,
		IsActive:      false,
		EmailVerified: false,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, appErrors.ErrConflict.WithMessage("Username or email already in use")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	user.Role = &role
	if rankID != nil {
		user.Rank = &rank
	}
	return user, nil
}

// GetByEmail fetches a user by email, or ErrNotFound.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: query user: %w", err)
	}
	return &user, nil
}

// GetByID fetches a user with role and rank preloaded, or ErrNotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Role").
		Preload("Rank").
		Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: query user: %w", err)
	}
	return &user, nil
}

// Activate marks the user's email verified and enables the account.
func (s *UserService) Activate(ctx context.Context, userID string) error {
	return s.ActivateTx(s.db.WithContext(ctx), userID)
}

// ActivateTx is Activate against the caller's transaction, so the flip can
// commit atomically with related writes such as code consumption.
func (s *UserService) ActivateTx(tx *gorm.DB, userID string) error {
	result := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"email_verified": true,
			"is_active":      true,
		})
	if result.Error != nil {
		return fmt.Errorf("user service: activate user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}
