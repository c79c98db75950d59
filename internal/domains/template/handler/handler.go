package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"loyalty-backend/internal/domains/template/model"
	"loyalty-backend/internal/domains/template/service"
	"loyalty-backend/internal/shared/response"
)

// =====================================================
// TEMPLATE HANDLER
// =====================================================

type TemplateHandler struct {
	templateService service.ServiceInterface
}

func NewTemplateHandler(templateService service.ServiceInterface) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

func (h *TemplateHandler) RegisterRoutes(router *gin.RouterGroup) {
	routes := router.Group("/templates")
	{
		routes.POST("", h.CreateTemplate)       // POST /v1/templates
		routes.GET("", h.ListTemplates)         // GET /v1/templates
		routes.GET("/:id", h.GetTemplate)       // GET /v1/templates/:id
		routes.PATCH("/:id", h.UpdateTemplate)  // PATCH /v1/templates/:id
		routes.DELETE("/:id", h.DeleteTemplate) // DELETE /v1/templates/:id
	}
}

func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req model.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorResponse(c, http.StatusUnprocessableEntity, model.ErrCodeValidationFailed, err.Error())
		return
	}

	template, err := h.templateService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, template)
}

func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.templateService.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, templates)
}

func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid template id")
		return
	}

	template, err := h.templateService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, template)
}

func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid template id")
		return
	}

	var req model.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorResponse(c, http.StatusUnprocessableEntity, model.ErrCodeValidationFailed, err.Error())
		return
	}

	template, err := h.templateService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, template)
}

func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid template id")
		return
	}

	if err := h.templateService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *TemplateHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrTemplateNotFound):
		response.ErrorResponse(c, http.StatusNotFound, model.ErrCodeTemplateNotFound, "Template not found")
	default:
		response.InternalServerError(c, "Internal server error")
	}
}
