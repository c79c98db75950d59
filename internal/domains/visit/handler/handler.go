package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	customermodel "loyalty-backend/internal/domains/customer/model"
	templatemodel "loyalty-backend/internal/domains/template/model"
	"loyalty-backend/internal/domains/visit/model"
	"loyalty-backend/internal/domains/visit/service"
	"loyalty-backend/internal/shared/middleware"
	"loyalty-backend/internal/shared/response"
	"loyalty-backend/internal/shared/utils"
)

// =====================================================
// VISIT HANDLER (stamp card)
// =====================================================

type VisitHandler struct {
	visitService service.ServiceInterface
}

func NewVisitHandler(visitService service.ServiceInterface) *VisitHandler {
	return &VisitHandler{visitService: visitService}
}

func (h *VisitHandler) RegisterRoutes(router *gin.RouterGroup) {
	routes := router.Group("/visits")
	{
		routes.POST("", h.RecordVisit)              // POST /v1/visits
		routes.POST("/reward", h.IssueReward)       // POST /v1/visits/reward
		routes.PATCH("/:id/revoke", h.RevokeVisit)  // PATCH /v1/visits/:id/revoke
		routes.GET("", h.ListVisits)                // GET /v1/visits?phone=&page=&limit=
		routes.GET("/progress", h.GetProgress)      // GET /v1/visits/progress?phone=
	}
}

func (h *VisitHandler) RecordVisit(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	var req model.RecordVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	visit, err := h.visitService.RecordVisit(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, visit)
}

func (h *VisitHandler) IssueReward(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	var req model.IssueRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	voucher, err := h.visitService.IssueReward(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, voucher)
}

func (h *VisitHandler) RevokeVisit(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid visit id")
		return
	}

	var req model.RevokeVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.visitService.RevokeVisit(c.Request.Context(), id, &req, actor); err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

func (h *VisitHandler) ListVisits(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		response.BadRequest(c, "phone query parameter is required")
		return
	}

	pagination := utils.ParsePagination(c)

	visits, total, err := h.visitService.ListByPhone(c.Request.Context(), phone, pagination)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, visits, &response.Meta{
		Page:  pagination.Page,
		Limit: pagination.Limit,
		Total: total,
	})
}

func (h *VisitHandler) GetProgress(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		response.BadRequest(c, "phone query parameter is required")
		return
	}

	progress, err := h.visitService.GetProgress(c.Request.Context(), phone)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, progress)
}

// =====================================================
// ERROR HANDLING
// =====================================================

func (h *VisitHandler) handleServiceError(c *gin.Context, err error) {
	var visitErr *model.VisitError
	if errors.As(err, &visitErr) {
		switch visitErr.Code {
		case model.ErrCodeValidationFailed:
			response.ErrorResponse(c, http.StatusUnprocessableEntity, visitErr.Code, visitErr.Message)
		default:
			response.ErrorResponse(c, http.StatusInternalServerError, visitErr.Code, visitErr.Message)
		}
		return
	}

	switch {
	case errors.Is(err, model.ErrVisitNotFound):
		response.ErrorResponse(c, http.StatusNotFound, model.ErrCodeVisitNotFound, "Visit not found")
	case errors.Is(err, model.ErrCardFull):
		response.ErrorResponse(c, http.StatusConflict, model.ErrCodeCardFull, err.Error())
	case errors.Is(err, model.ErrCardNotFull):
		response.ErrorResponse(c, http.StatusConflict, model.ErrCodeCardNotFull, err.Error())
	case errors.Is(err, model.ErrAlreadyRevoked):
		response.ErrorResponse(c, http.StatusConflict, model.ErrCodeAlreadyRevoked, err.Error())
	case errors.Is(err, model.ErrVisitImmutable):
		response.ErrorResponse(c, http.StatusConflict, model.ErrCodeVisitImmutable, err.Error())
	case errors.Is(err, model.ErrRevokeForbidden):
		response.ErrorResponse(c, http.StatusForbidden, model.ErrCodeRevokeForbidden, err.Error())
	case errors.Is(err, customermodel.ErrCustomerNotFound):
		response.ErrorResponse(c, http.StatusNotFound, customermodel.ErrCodeCustomerNotFound, "Customer not found")
	case errors.Is(err, templatemodel.ErrTemplateNotFound):
		response.ErrorResponse(c, http.StatusNotFound, templatemodel.ErrCodeTemplateNotFound, "Template not found")
	default:
		response.InternalServerError(c, "Internal server error")
	}
}
