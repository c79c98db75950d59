package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"loyalty-backend/internal/domains/voucher/model"
	"loyalty-backend/internal/domains/voucher/service"
	"loyalty-backend/internal/shared/middleware"
	"loyalty-backend/internal/shared/response"
	"loyalty-backend/internal/shared/utils"
)

// =====================================================
// VOUCHER HANDLER
// =====================================================

type VoucherHandler struct {
	voucherService service.ServiceInterface
}

func NewVoucherHandler(voucherService service.ServiceInterface) *VoucherHandler {
	return &VoucherHandler{voucherService: voucherService}
}

// RegisterRoutes registers all voucher routes (staff-protected group).
func (h *VoucherHandler) RegisterRoutes(router *gin.RouterGroup) {
	routes := router.Group("/vouchers")
	{
		routes.POST("", h.CreateVoucher)                   // POST /v1/vouchers
		routes.POST("/batch", h.CreateVoucherBatch)        // POST /v1/vouchers/batch
		routes.GET("", h.ListVouchers)                     // GET /v1/vouchers?status=active&search=
		routes.GET("/:id", h.GetVoucher)                   // GET /v1/vouchers/:id
		routes.PATCH("/:id", h.UpdateVoucher)              // PATCH /v1/vouchers/:id
		routes.DELETE("/:id", h.DeleteVoucher)             // DELETE /v1/vouchers/:id
		routes.POST("/bind", h.BindVoucher)                // POST /v1/vouchers/bind
		routes.POST("/bulk-bind", h.BulkBindVouchers)      // POST /v1/vouchers/bulk-bind
		routes.PATCH("/:id/request-claim", h.RequestClaim) // PATCH /v1/vouchers/:id/request-claim
		routes.PATCH("/:id/claim", h.ClaimVoucher)         // PATCH /v1/vouchers/:id/claim
		routes.GET("/redemptions", h.ListRedemptions)      // GET /v1/vouchers/redemptions?phone=
	}
}

func (h *VoucherHandler) CreateVoucher(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	var req model.CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	voucher, err := h.voucherService.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, voucher)
}

func (h *VoucherHandler) CreateVoucherBatch(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	var req model.CreateVoucherBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	vouchers, err := h.voucherService.CreateBatch(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, vouchers)
}

func (h *VoucherHandler) GetVoucher(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid voucher id")
		return
	}

	voucher, err := h.voucherService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, voucher)
}

func (h *VoucherHandler) ListVouchers(c *gin.Context) {
	pagination := utils.ParsePagination(c)

	filter := model.ListFilter{
		BoundPhone: c.Query("phone"),
		Search:     c.Query("search"),
	}
	if statuses := c.Query("status"); statuses != "" {
		filter.Statuses = strings.Split(statuses, ",")
	}
	if raw := c.Query("template_id"); raw != "" {
		templateID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "Invalid template_id")
			return
		}
		filter.TemplateID = &templateID
	}

	vouchers, total, err := h.voucherService.List(c.Request.Context(), filter, pagination)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, vouchers, &response.Meta{
		Page:  pagination.Page,
		Limit: pagination.Limit,
		Total: total,
	})
}

func (h *VoucherHandler) UpdateVoucher(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid voucher id")
		return
	}

	var req model.UpdateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.voucherService.Update(c.Request.Context(), actor, id, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

func (h *VoucherHandler) DeleteVoucher(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid voucher id")
		return
	}

	if err := h.voucherService.Delete(c.Request.Context(), actor, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *VoucherHandler) BindVoucher(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	var req model.BindVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	voucher, err := h.voucherService.Bind(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, voucher)
}

func (h *VoucherHandler) BulkBindVouchers(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	var req model.BulkBindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	vouchers, err := h.voucherService.BulkBind(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, vouchers)
}

func (h *VoucherHandler) RequestClaim(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid voucher id")
		return
	}

	if err := h.voucherService.RequestClaim(c.Request.Context(), actor, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"claim_requested": true})
}

func (h *VoucherHandler) ClaimVoucher(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid voucher id")
		return
	}

	var req model.ClaimVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	voucher, err := h.voucherService.Claim(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, voucher)
}

func (h *VoucherHandler) ListRedemptions(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		response.BadRequest(c, "phone query parameter is required")
		return
	}

	pagination := utils.ParsePagination(c)

	redemptions, total, err := h.voucherService.ListRedemptions(c.Request.Context(), phone, pagination)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, redemptions, &response.Meta{
		Page:  pagination.Page,
		Limit: pagination.Limit,
		Total: total,
	})
}

// =====================================================
// ERROR HANDLING
// =====================================================

func (h *VoucherHandler) handleServiceError(c *gin.Context, err error) {
	var vchErr *model.VoucherError
	if errors.As(err, &vchErr) {
		switch vchErr.Code {
		case model.ErrCodeValidationFailed:
			response.ErrorResponse(c, http.StatusUnprocessableEntity, vchErr.Code, vchErr.Message)
		case model.ErrCodeInsufficientVouchers, model.ErrCodeVoucherExpired:
			response.ErrorResponse(c, http.StatusConflict, vchErr.Code, vchErr.Message)
		case model.ErrCodeCodeCollision:
			response.ErrorResponse(c, http.StatusServiceUnavailable, vchErr.Code, vchErr.Message)
		default:
			response.ErrorResponse(c, http.StatusInternalServerError, vchErr.Code, vchErr.Message)
		}
		return
	}

	switch {
	case errors.Is(err, model.ErrVoucherNotFound):
		response.ErrorResponse(c, http.StatusNotFound, model.ErrCodeVoucherNotFound, "Voucher not found")
	case errors.Is(err, model.ErrAlreadyClaimed):
		response.ErrorResponse(c, http.StatusConflict, model.ErrCodeAlreadyClaimed, err.Error())
	case errors.Is(err, model.ErrNotActive):
		response.ErrorResponse(c, http.StatusConflict, model.ErrCodeNotActive, err.Error())
	case errors.Is(err, model.ErrNotAvailable):
		response.ErrorResponse(c, http.StatusConflict, model.ErrCodeNotAvailable, err.Error())
	case errors.Is(err, model.ErrVoucherExpired):
		response.ErrorResponse(c, http.StatusConflict, model.ErrCodeVoucherExpired, err.Error())
	case errors.Is(err, model.ErrTemplateNotFound):
		response.ErrorResponse(c, http.StatusNotFound, model.ErrCodeTemplateNotFound, err.Error())
	default:
		response.InternalServerError(c, "Internal server error")
	}
}
