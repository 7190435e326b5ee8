package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/promptlib/internal/service"
)

// TemplateHandler serves legacy prompt templates.
type TemplateHandler struct {
	svc *service.TemplateService
}

func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// TemplateBody is the request body for creating or updating a template.
type TemplateBody struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Content     string  `json:"content" binding:"required"`
	Enabled     *bool   `json:"enabled"`
	IsDefault   *bool   `json:"is_default"`
}

func (b TemplateBody) request() service.TemplateRequest {
	return service.TemplateRequest{
		Name:        b.Name,
		Description: b.Description,
		Content:     b.Content,
		Enabled:     b.Enabled,
		IsDefault:   b.IsDefault,
	}
}

// ListEnabled godoc
// @Summary List enabled prompt templates
// @Tags prompt-templates
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.PromptTemplate
// @Router /prompt-templates [get]
func (h *TemplateHandler) ListEnabled(c *gin.Context) {
	templates, err := h.svc.ListEnabled(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// List godoc
// @Summary List all prompt templates (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.PromptTemplate
// @Router /admin/prompt-templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.svc.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// Get godoc
// @Summary Get a prompt template (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} models.PromptTemplate
// @Failure 404 {object} ErrorResponse
// @Router /admin/prompt-templates/{id} [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id", "template")
	if !ok {
		return
	}
	t, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Create godoc
// @Summary Create a prompt template (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param template body TemplateBody true "Template"
// @Success 201 {object} models.PromptTemplate
// @Failure 400 {object} ErrorResponse
// @Router /admin/prompt-templates [post]
func (h *TemplateHandler) Create(c *gin.Context) {
	var body TemplateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	t, err := h.svc.Create(c.Request.Context(), body.request(), getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// Update godoc
// @Summary Update a prompt template (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param template body TemplateBody true "Template"
// @Success 200 {object} models.PromptTemplate
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/prompt-templates/{id} [put]
func (h *TemplateHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", "template")
	if !ok {
		return
	}
	var body TemplateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	t, err := h.svc.Update(c.Request.Context(), id, body.request(), getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Delete godoc
// @Summary Delete a prompt template (admin only)
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /admin/prompt-templates/{id} [delete]
func (h *TemplateHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "template")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, getUserID(c)); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetDefault godoc
// @Summary Make a prompt template the default (admin only)
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /admin/prompt-templates/{id}/default [post]
func (h *TemplateHandler) SetDefault(c *gin.Context) {
	id, ok := parseID(c, "id", "template")
	if !ok {
		return
	}
	if err := h.svc.SetDefault(c.Request.Context(), id, getUserID(c)); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
