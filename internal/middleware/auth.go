package middleware

import (
	"fmt"
	"strings"

	"student-registry/internal/apperr"
	"student-registry/internal/models"
	"student-registry/internal/service"
	"student-registry/pkg/utils"

	"github.com/gin-gonic/gin"
)

const userKey = "user"

// AuthMiddleware resolves the bearer token from the Authorization header
// and stores the authenticated user in the gin context
func AuthMiddleware(creds *service.CredentialService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.AppErrorResponse(c, fmt.Errorf("%w: authorization header required", apperr.ErrUnauthenticated))
			c.Abort()
			return
		}

		// Check Bearer prefix
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.AppErrorResponse(c, fmt.Errorf("%w: invalid authorization format, use: Bearer <token>", apperr.ErrUnauthenticated))
			c.Abort()
			return
		}

		user, err := creds.ResolveToken(c.Request.Context(), parts[1])
		if err != nil {
			utils.AppErrorResponse(c, err)
			c.Abort()
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the user set by AuthMiddleware, or nil
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// RequirePermission rejects callers whose role does not permit op
func RequirePermission(op service.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.Authorize(CurrentUser(c), op); err != nil {
			utils.AppErrorResponse(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
