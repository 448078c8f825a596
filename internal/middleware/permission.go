package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/permissions"
	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/response"
)

// RequirePermission rejects the request unless the resolved identity holds
// the permission token. Must run after Auth.
func RequirePermission(checker *permissions.Checker, token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if err := checker.Require(identity, token); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Next()
	}
}
