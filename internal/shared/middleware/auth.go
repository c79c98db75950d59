package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"loyalty-backend/internal/shared"
	"loyalty-backend/pkg/jwt"
)

const actorContextKey = "actor"

// AuthMiddleware xác thực JWT access token và inject Actor vào gin context.
// Service layer nhận Actor như một tham số tường minh từ handler,
// không đọc identity từ ambient state.
func AuthMiddleware(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		// Extract token từ "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil || claims.Type != "access" {
			c.JSON(401, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(401, gin.H{"error": "invalid user ID in token"})
			c.Abort()
			return
		}

		c.Set(actorContextKey, shared.Actor{
			ID:    userID,
			Phone: claims.Phone,
			Role:  claims.Role,
		})

		c.Next()
	}
}

// GetActor lấy Actor đã được AuthMiddleware inject
func GetActor(c *gin.Context) (shared.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return shared.Actor{}, false
	}
	actor, ok := v.(shared.Actor)
	return actor, ok
}
