package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/KGR33N-dev/Portfolio-Backend/internal/auth"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/permissions"
	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/response"
)

// Context keys set by the auth middleware.
const (
	CtxIdentityKey = "authIdentity"
	CtxUserIDKey   = "userID"
)

// APIKeyAuthenticator validates a raw API key and returns the stored record.
type APIKeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*models.APIKey, error)
}

// Auth authenticates requests via a Bearer access token or an X-API-Key
// header, resolves the caller's identity against the current database
// snapshot, and stores it in the request context. The token wins when both
// credentials are present.
func Auth(tokens *iauth.TokenService, checker *permissions.Checker, apiKeys APIKeyAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
			authenticateToken(c, tokens, checker, strings.TrimSpace(authz[7:]))
			return
		}

		if rawKey := strings.TrimSpace(c.GetHeader("X-API-Key")); rawKey != "" && apiKeys != nil {
			authenticateAPIKey(c, checker, apiKeys, rawKey)
			return
		}

		c.Header("WWW-Authenticate", "Bearer")
		response.Error(c, appErrors.ErrUnauthorized)
		c.Abort()
	}
}

// OptionalAuth resolves an identity when credentials are supplied but lets
// anonymous requests through. Presented credentials must still be valid;
// public routes use this so handlers can tailor responses to the caller.
func OptionalAuth(tokens *iauth.TokenService, checker *permissions.Checker, apiKeys APIKeyAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
			authenticateToken(c, tokens, checker, strings.TrimSpace(authz[7:]))
			return
		}

		if rawKey := strings.TrimSpace(c.GetHeader("X-API-Key")); rawKey != "" && apiKeys != nil {
			authenticateAPIKey(c, checker, apiKeys, rawKey)
			return
		}

		c.Next()
	}
}

func authenticateToken(c *gin.Context, tokens *iauth.TokenService, checker *permissions.Checker, token string) {
	claims, err := tokens.Verify(token, iauth.TokenTypeAccess)
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		switch err {
		case iauth.ErrTokenExpired:
			response.Error(c, appErrors.ErrTokenExpired)
		default:
			response.Error(c, appErrors.ErrTokenInvalid)
		}
		c.Abort()
		return
	}

	identity, err := checker.ResolveUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		c.Abort()
		return
	}

	setIdentity(c, identity)
	c.Next()
}

func authenticateAPIKey(c *gin.Context, checker *permissions.Checker, apiKeys APIKeyAuthenticator, rawKey string) {
	key, err := apiKeys.Authenticate(c.Request.Context(), rawKey)
	if err != nil {
		response.Error(c, appErrors.ErrUnauthorized)
		c.Abort()
		return
	}

	identity, err := checker.ResolveUser(c.Request.Context(), key.UserID)
	if err != nil {
		response.Error(c, err)
		c.Abort()
		return
	}
	// From here on the key's permission subset governs what the request may do.
	identity.APIKey = key

	setIdentity(c, identity)
	c.Next()
}

func setIdentity(c *gin.Context, identity *permissions.Identity) {
	c.Set(CtxIdentityKey, identity)
	c.Set(CtxUserIDKey, identity.UserID)
}

// IdentityFromContext extracts the resolved identity stored by Auth.
func IdentityFromContext(c *gin.Context) (*permissions.Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*permissions.Identity)
	return identity, ok && identity != nil
}
