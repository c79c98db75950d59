package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"loyalty-backend/internal/domains/customer/model"
	"loyalty-backend/internal/domains/customer/service"
	"loyalty-backend/internal/shared/middleware"
	"loyalty-backend/internal/shared/response"
	"loyalty-backend/internal/shared/utils"
)

// =====================================================
// CUSTOMER HANDLER
// =====================================================

type CustomerHandler struct {
	customerService service.ServiceInterface
}

func NewCustomerHandler(customerService service.ServiceInterface) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// RegisterRoutes registers all customer routes (staff-protected group).
func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	routes := router.Group("/customers")
	{
		routes.POST("", h.CreateCustomer)       // POST /v1/customers
		routes.GET("", h.ListCustomers)         // GET /v1/customers?page=1&limit=20&search=
		routes.GET("/:id", h.GetCustomer)       // GET /v1/customers/:id
		routes.PATCH("/:id", h.UpdateCustomer)  // PATCH /v1/customers/:id
		routes.DELETE("/:id", h.DeleteCustomer) // DELETE /v1/customers/:id
	}
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	var req model.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	customer, err := h.customerService.Create(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, customer)
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid customer id")
		return
	}

	customer, err := h.customerService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, customer)
}

func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	pagination := utils.ParsePagination(c)
	search := c.Query("search")

	customers, total, err := h.customerService.List(c.Request.Context(), search, pagination)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, customers, &response.Meta{
		Page:  pagination.Page,
		Limit: pagination.Limit,
		Total: total,
	})
}

func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid customer id")
		return
	}

	var req model.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	customer, err := h.customerService.Update(c.Request.Context(), id, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, customer)
}

func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Missing authenticated actor")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid customer id")
		return
	}

	if err := h.customerService.Delete(c.Request.Context(), id, actor); err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// =====================================================
// ERROR HANDLING
// =====================================================

func (h *CustomerHandler) handleServiceError(c *gin.Context, err error) {
	var custErr *model.CustomerError
	if errors.As(err, &custErr) {
		switch custErr.Code {
		case model.ErrCodeValidationFailed:
			response.ErrorResponse(c, http.StatusUnprocessableEntity, custErr.Code, custErr.Message)
		case model.ErrCodePhoneTaken:
			response.ErrorResponse(c, http.StatusConflict, custErr.Code, custErr.Message)
		default:
			response.ErrorResponse(c, http.StatusInternalServerError, custErr.Code, custErr.Message)
		}
		return
	}

	switch {
	case errors.Is(err, model.ErrCustomerNotFound):
		response.ErrorResponse(c, http.StatusNotFound, model.ErrCodeCustomerNotFound, "Customer not found")
	case errors.Is(err, model.ErrPhoneTaken):
		response.ErrorResponse(c, http.StatusConflict, model.ErrCodePhoneTaken, "Phone number already exists")
	default:
		response.InternalServerError(c, "Internal server error")
	}
}
