package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/middleware"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/permissions"
	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentIdentity fetches the authenticated identity or writes a 401 and
// returns false.
func currentIdentity(c *gin.Context) (*permissions.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return identity, true
}
