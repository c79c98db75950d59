package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"loyalty-backend/internal/domains/auth/model"
	"loyalty-backend/internal/domains/auth/service"
	"loyalty-backend/internal/shared/middleware"
	"loyalty-backend/internal/shared/response"
)

// =====================================================
// AUTH HANDLER
// =====================================================

type AuthHandler struct {
	authService service.ServiceInterface
}

func NewAuthHandler(authService service.ServiceInterface) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterPublicRoutes - login/refresh không cần token.
func (h *AuthHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	routes := router.Group("/auth")
	{
		routes.POST("/login", h.Login)     // POST /v1/auth/login
		routes.POST("/refresh", h.Refresh) // POST /v1/auth/refresh
	}
}

// RegisterAdminRoutes - quản lý tài khoản nhân viên, chỉ admin.
func (h *AuthHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	routes := router.Group("/staff")
	{
		routes.POST("", h.CreateStaff) // POST /v1/admin/staff
		routes.GET("", h.ListStaff)    // GET /v1/admin/staff
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req model.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

func (h *AuthHandler) CreateStaff(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	var req model.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	staff, err := h.authService.CreateStaff(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, staff)
}

func (h *AuthHandler) ListStaff(c *gin.Context) {
	accounts, err := h.authService.ListStaff(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, accounts)
}

// =====================================================
// ERROR HANDLING
// =====================================================

func (h *AuthHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		response.ErrorResponse(c, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, err.Error())
	case errors.Is(err, model.ErrStaffInactive):
		response.ErrorResponse(c, http.StatusForbidden, model.ErrCodeStaffInactive, err.Error())
	case errors.Is(err, model.ErrInvalidToken):
		response.ErrorResponse(c, http.StatusUnauthorized, model.ErrCodeInvalidToken, err.Error())
	case errors.Is(err, model.ErrStaffNotFound):
		response.ErrorResponse(c, http.StatusNotFound, model.ErrCodeStaffNotFound, err.Error())
	case errors.Is(err, model.ErrPhoneTaken):
		response.ErrorResponse(c, http.StatusConflict, model.ErrCodePhoneTaken, err.Error())
	default:
		var valErrs validation.Errors
		if errors.As(err, &valErrs) {
			response.ErrorResponse(c, http.StatusUnprocessableEntity, model.ErrCodeValidationFailed, err.Error())
			return
		}
		response.InternalServerError(c, "Internal server error")
	}
}
