package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/services"
	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/response"
)

// APIKeyHandler manages machine credentials owned by the authenticated user.
type APIKeyHandler struct {
	keys *services.APIKeyService
}

func NewAPIKeyHandler(keys *services.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

type createAPIKeyRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=64"`
	Permissions []string `json:"permissions" validate:"required,min=1"`
	ExpiresDays int      `json:"expires_days" validate:"min=0,max=3650"`
}

// POST /api/auth/api-keys
func (h *APIKeyHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	if identity.UserID == "" {
		// API keys cannot mint further API keys.
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	var req createAPIKeyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	key, raw, err := h.keys.Create(requestContext(c), identity.UserID, services.CreateAPIKeyInput{
		Name:        req.Name,
		Permissions: req.Permissions,
		ExpiresDays: req.ExpiresDays,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	// The raw secret is shown exactly once.
	response.Success(c, http.StatusCreated, gin.H{
		"api_key":  apiKeyPayload(key),
		"full_key": raw,
	})
}

// GET /api/auth/api-keys
func (h *APIKeyHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	keys, err := h.keys.List(requestContext(c), identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]gin.H, 0, len(keys))
	for i := range keys {
		items = append(items, apiKeyPayload(&keys[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"keys": items})
}

// PATCH /api/auth/api-keys/:id/toggle
func (h *APIKeyHandler) Toggle(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	key, err := h.keys.Toggle(requestContext(c), identity.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, apiKeyPayload(key))
}

// DELETE /api/auth/api-keys/:id
func (h *APIKeyHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.keys.Delete(requestContext(c), identity.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "API key deleted"})
}

func apiKeyPayload(key *models.APIKey) gin.H {
	return gin.H{
		"id":           key.ID,
		"name":         key.Name,
		"key_preview":  key.KeyPreview,
		"permissions":  []string(key.Permissions),
		"is_active":    key.IsActive,
		"expires_at":   key.ExpiresAt,
		"last_used_at": key.LastUsedAt,
		"created_at":   key.CreatedAt,
	}
}
