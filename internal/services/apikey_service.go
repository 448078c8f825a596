package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/permissions"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/crypto"
	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
)

const apiKeyBytes = 32

// CreateAPIKeyInput describes a new machine credential.
type CreateAPIKeyInput struct {
	Name        string
	Permissions []string
	ExpiresDays int
}

// APIKeyService issues and validates long-lived API keys. The raw secret is
// returned exactly once at creation; only its SHA-256 hash is stored.
type APIKeyService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAPIKeyService constructs an APIKeyService.
func NewAPIKeyService(db *gorm.DB) (*APIKeyService, error) {
	if db == nil {
		return nil, errors.New("api key service: db is required")
	}
	return &APIKeyService{db: db, now: time.Now}, nil
}

// WithClock substitutes the time source, for tests.
func (s *APIKeyService) WithClock(now func() time.Time) *APIKeyService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create stores a new key owned by userID and returns the record together
// with the raw secret. Permission tokens must exist in the registry.
func (s *APIKeyService) Create(ctx context.Context, userID string, input CreateAPIKeyInput) (*models.APIKey, string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, "", appErrors.NewValidation("API key name is required")
	}
	if len(input.Permissions) == 0 {
		return nil, "", appErrors.NewValidation("at least one permission is required")
	}

	perms := make([]string, 0, len(input.Permissions))
	for _, token := range input.Permissions {
		token = strings.TrimSpace(token)
		if _, ok := permissions.Get(token); !ok {
			return nil, "", appErrors.NewValidation(fmt.Sprintf("unknown permission %q", token))
		}
		perms = append(perms, token)
	}

	raw, err := crypto.GenerateToken(apiKeyBytes)
	if err != nil {
		return nil, "", fmt.Errorf("api key service: generate key: %w", err)
	}

	var expiresAt *time.Time
	if input.ExpiresDays > 0 {
		t := s.now().AddDate(0, 0, input.ExpiresDays)
		expiresAt = &t
	}

	key := &models.APIKey{
		Name:        name,
		KeyHash:     crypto.HashAPIKey(raw),
		KeyPreview:  raw[:8] + "...",
		UserID:      userID,
		Permissions: datatypes.NewJSONSlice(perms),
		IsActive:    true,
		ExpiresAt:   expiresAt,
	}

	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		return nil, "", fmt.Errorf("api key service: create key: %w", err)
	}

	return key, raw, nil
}

// Authenticate resolves a raw key to its stored record, enforcing the active
// flag and expiry, and touches last_used_at.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (*models.APIKey, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, appErrors.ErrUnauthorized
	}

	var key models.APIKey
	err := s.db.WithContext(ctx).
		Where("key_hash = ? AND is_active = ?", crypto.HashAPIKey(rawKey), true).
		Take(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("api key service: query key: %w", err)
	}

	now := s.now()
	if key.IsExpired(now) {
		return nil, appErrors.ErrUnauthorized
	}

	if err := s.db.WithContext(ctx).Model(&key).Update("last_used_at", now).Error; err != nil {
		return nil, fmt.Errorf("api key service: touch key: %w", err)
	}

	return &key, nil
}

// List returns the keys owned by userID, newest first. Raw secrets are not
// recoverable; callers only ever see the preview.
func (s *APIKeyService) List(ctx context.Context, userID string) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("api key service: list keys: %w", err)
	}
	return keys, nil
}

// Toggle flips the active flag and returns the updated record.
func (s *APIKeyService) Toggle(ctx context.Context, userID, keyID string) (*models.APIKey, error) {
	key, err := s.get(ctx, userID, keyID)
	if err != nil {
		return nil, err
	}

	key.IsActive = !key.IsActive
	if err := s.db.WithContext(ctx).Model(key).Update("is_active", key.IsActive).Error; err != nil {
		return nil, fmt.Errorf("api key service: toggle key: %w", err)
	}
	return key, nil
}

// Delete removes a key owned by userID.
func (s *APIKeyService) Delete(ctx context.Context, userID, keyID string) error {
	key, err := s.get(ctx, userID, keyID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(key).Error; err != nil {
		return fmt.Errorf("api key service: delete key: %w", err)
	}
	return nil
}

func (s *APIKeyService) get(ctx context.Context, userID, keyID string) (*models.APIKey, error) {
	var key models.APIKey
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", keyID, userID).
		Take(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("api key service: query key: %w", err)
	}
	return &key, nil
}
