package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/promptlib/internal/models"
	"github.com/nebari-dev/promptlib/internal/promptlib"
	"github.com/nebari-dev/promptlib/internal/service"
)

// WorkspaceHandler serves workspace-scoped prompt operations.
type WorkspaceHandler struct {
	workspaces *service.WorkspaceService
	templates  *service.TemplateService
	libraries  *service.LibraryService
}

func NewWorkspaceHandler(workspaces *service.WorkspaceService, templates *service.TemplateService, libraries *service.LibraryService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces, templates: templates, libraries: libraries}
}

// CreateWorkspaceRequest is the request body for creating a workspace.
type CreateWorkspaceRequest struct {
	Slug string `json:"slug" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// ActiveTemplateRequest selects a workspace template; null clears the selection.
type ActiveTemplateRequest struct {
	TemplateID *uint `json:"template_id"`
}

// ActiveTemplateResponse carries the resolved template, or null when none applies.
type ActiveTemplateResponse struct {
	Template *models.PromptTemplate `json:"template"`
}

// AnswersRequest carries answers keyed by variable. Values may be any JSON
// scalar; numbers, booleans and null are converted to their string form.
type AnswersRequest struct {
	Answers map[string]any `json:"answers" swaggertype:"object"`
}

// List godoc
// @Summary List workspaces (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Workspace
// @Router /admin/workspaces [get]
func (h *WorkspaceHandler) List(c *gin.Context) {
	workspaces, err := h.workspaces.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, workspaces)
}

// Create godoc
// @Summary Create a workspace (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param workspace body CreateWorkspaceRequest true "Workspace"
// @Success 201 {object} models.Workspace
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/workspaces [post]
func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	ws, err := h.workspaces.Create(c.Request.Context(), service.WorkspaceRequest{Slug: req.Slug, Name: req.Name}, getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ws)
}

// GetActiveTemplate godoc
// @Summary Resolve the workspace's prompt template
// @Description Returns the workspace's enabled selection, else the enabled default, else null
// @Tags workspaces
// @Security BearerAuth
// @Produce json
// @Param slug path string true "Workspace slug"
// @Success 200 {object} ActiveTemplateResponse
// @Failure 404 {object} ErrorResponse
// @Router /workspaces/{slug}/prompt-template/active [get]
func (h *WorkspaceHandler) GetActiveTemplate(c *gin.Context) {
	t, err := h.templates.ResolveActive(c.Request.Context(), c.Param("slug"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ActiveTemplateResponse{Template: t})
}

// SetActiveTemplate godoc
// @Summary Select the workspace's prompt template
// @Tags workspaces
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param slug path string true "Workspace slug"
// @Param selection body ActiveTemplateRequest true "Template selection"
// @Success 200 {object} models.Workspace
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /workspaces/{slug}/prompt-template/active [put]
func (h *WorkspaceHandler) SetActiveTemplate(c *gin.Context) {
	var req ActiveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	ws, err := h.templates.SetActive(c.Request.Context(), c.Param("slug"), req.TemplateID, getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

// ListLibraries godoc
// @Summary List prompt libraries available to a workspace
// @Tags workspaces
// @Security BearerAuth
// @Produce json
// @Param slug path string true "Workspace slug"
// @Success 200 {array} models.PromptLibrary
// @Failure 404 {object} ErrorResponse
// @Router /workspaces/{slug}/prompt-libraries [get]
func (h *WorkspaceHandler) ListLibraries(c *gin.Context) {
	libs, err := h.libraries.ListAccessible(c.Request.Context(), c.Param("slug"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, libs)
}

func bindAnswers(c *gin.Context) (promptlib.Answers, bool) {
	var req AnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "answers must be an object"})
		return nil, false
	}
	return promptlib.AnswersFromJSON(req.Answers), true
}

// Evaluate godoc
// @Summary Evaluate visibility and missing answers for a library form
// @Tags workspaces
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param slug path string true "Workspace slug"
// @Param id path int true "Library ID"
// @Param answers body AnswersRequest true "Current answers"
// @Success 200 {object} promptlib.Evaluation
// @Failure 404 {object} ErrorResponse
// @Router /workspaces/{slug}/prompt-libraries/{id}/evaluate [post]
func (h *WorkspaceHandler) Evaluate(c *gin.Context) {
	id, ok := parseID(c, "id", "library")
	if !ok {
		return
	}
	answers, ok := bindAnswers(c)
	if !ok {
		return
	}
	ev, err := h.libraries.Evaluate(c.Request.Context(), c.Param("slug"), id, answers)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// Render godoc
// @Summary Validate answers and render a library prompt
// @Description Responds 200 with ok=false and the missing variables when required answers are absent
// @Tags workspaces
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param slug path string true "Workspace slug"
// @Param id path int true "Library ID"
// @Param answers body AnswersRequest true "Answers"
// @Success 200 {object} promptlib.Result
// @Failure 404 {object} ErrorResponse
// @Router /workspaces/{slug}/prompt-libraries/{id}/render [post]
func (h *WorkspaceHandler) Render(c *gin.Context) {
	id, ok := parseID(c, "id", "library")
	if !ok {
		return
	}
	answers, ok := bindAnswers(c)
	if !ok {
		return
	}
	res, err := h.libraries.ValidateAndRender(c.Request.Context(), c.Param("slug"), id, answers)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
