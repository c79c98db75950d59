package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

type clientIPKey struct{}

const clientIPContextKey = "client_ip"

// ClientIPMiddleware extracts the client IP address and injects it into both
// the gin context and the request context. Audit records downstream dùng IP
// này làm source address.
func ClientIPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		c.Set(clientIPContextKey, clientIP)

		ctx := context.WithValue(c.Request.Context(), clientIPKey{}, clientIP)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetClientIP retrieves the client IP set by ClientIPMiddleware.
// Returns empty string if the middleware was not registered.
func GetClientIP(c *gin.Context) string {
	return c.GetString(clientIPContextKey)
}

// ClientIPFromContext đọc client IP từ request context (dùng ở service layer)
func ClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}
