package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"loyalty-backend/internal/shared/middleware"
	"loyalty-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
		middleware.ClientIPMiddleware(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		// Public: login/refresh
		c.AuthHandler.RegisterPublicRoutes(v1)

		// Staff: mọi nghiệp vụ tại quầy
		staff := v1.Group("")
		staff.Use(middleware.AuthMiddleware(c.JWTManager), middleware.RequireStaff())
		{
			c.VoucherHandler.RegisterRoutes(staff)
			c.TemplateHandler.RegisterRoutes(staff)
			c.CustomerHandler.RegisterRoutes(staff)
			c.VisitHandler.RegisterRoutes(staff)
		}

		// Admin: quản lý tài khoản nhân viên
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(c.JWTManager), middleware.RequireAdmin())
		{
			c.AuthHandler.RegisterAdminRoutes(admin)
		}
	}

	return router
}

// ========================================
// HEALTH CHECK
// ========================================
func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		dbStatus := "ok"
		if err := c.DB.HealthCheck(ctx.Request.Context()); err != nil {
			dbStatus = "down"
		}

		redisStatus := "ok"
		if err := c.Cache.HealthCheck(ctx.Request.Context()); err != nil {
			redisStatus = "down"
		}

		status := http.StatusOK
		if dbStatus != "ok" {
			status = http.StatusServiceUnavailable
		}

		ctx.JSON(status, gin.H{
			"status":    dbStatus,
			"redis":     redisStatus,
			"version":   c.Config.App.Version,
			"timestamp": time.Now().UTC(),
		})
	}
}
