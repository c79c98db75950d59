package middleware

import (
	"github.com/gin-gonic/gin"

	"loyalty-backend/internal/shared"
	"loyalty-backend/internal/shared/response"
)

// RequireStaff chặn request không phải staff/admin.
// Phải đứng sau AuthMiddleware trong chain.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		if !actor.IsStaff() {
			response.Forbidden(c, "staff role required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin chặn request không phải admin
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		if actor.Role != shared.RoleAdmin {
			response.Forbidden(c, "admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}
