package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/promptlib/internal/promptlib"
	"github.com/nebari-dev/promptlib/internal/service"
)

// LibraryHandler serves prompt library administration.
type LibraryHandler struct {
	svc *service.LibraryService
}

func NewLibraryHandler(svc *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{svc: svc}
}

// LibraryBody is the request body for creating or updating a library.
// Omitting questions or workspace_ids on update keeps the stored ones; an
// empty workspace_ids list makes the library global.
type LibraryBody struct {
	Name         string                   `json:"name" binding:"required"`
	Description  *string                  `json:"description"`
	Template     string                   `json:"template" binding:"required"`
	Enabled      *bool                    `json:"enabled"`
	Questions    []promptlib.QuestionSpec `json:"questions"`
	WorkspaceIDs []uint                   `json:"workspace_ids"`
}

func (b LibraryBody) request() service.LibraryRequest {
	return service.LibraryRequest{
		Name:         b.Name,
		Description:  b.Description,
		Template:     b.Template,
		Enabled:      b.Enabled,
		Questions:    b.Questions,
		WorkspaceIDs: b.WorkspaceIDs,
	}
}

// AssignmentsBody is the request body for scoping a library to workspaces.
type AssignmentsBody struct {
	WorkspaceIDs []uint `json:"workspace_ids"`
}

// List godoc
// @Summary List all prompt libraries (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} service.LibraryDetail
// @Router /admin/prompt-libraries [get]
func (h *LibraryHandler) List(c *gin.Context) {
	libs, err := h.svc.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, libs)
}

// Get godoc
// @Summary Get a prompt library (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "Library ID"
// @Success 200 {object} service.LibraryDetail
// @Failure 404 {object} ErrorResponse
// @Router /admin/prompt-libraries/{id} [get]
func (h *LibraryHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id", "library")
	if !ok {
		return
	}
	lib, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, lib)
}

// Create godoc
// @Summary Create a prompt library (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param library body LibraryBody true "Library"
// @Success 201 {object} service.LibraryDetail
// @Failure 400 {object} ErrorResponse
// @Router /admin/prompt-libraries [post]
func (h *LibraryHandler) Create(c *gin.Context) {
	var body LibraryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	lib, err := h.svc.Create(c.Request.Context(), body.request(), getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lib)
}

// Update godoc
// @Summary Update a prompt library (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Library ID"
// @Param library body LibraryBody true "Library"
// @Success 200 {object} service.LibraryDetail
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/prompt-libraries/{id} [put]
func (h *LibraryHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", "library")
	if !ok {
		return
	}
	var body LibraryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	lib, err := h.svc.Update(c.Request.Context(), id, body.request(), getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, lib)
}

// Delete godoc
// @Summary Delete a prompt library and its questions (admin only)
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Library ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /admin/prompt-libraries/{id} [delete]
func (h *LibraryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "library")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, getUserID(c)); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetAssignments godoc
// @Summary Scope a prompt library to workspaces (admin only)
// @Description An empty list makes the library available to every workspace
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Library ID"
// @Param assignments body AssignmentsBody true "Workspace IDs"
// @Success 200 {object} service.LibraryDetail
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/prompt-libraries/{id}/workspaces [put]
func (h *LibraryHandler) SetAssignments(c *gin.Context) {
	id, ok := parseID(c, "id", "library")
	if !ok {
		return
	}
	var body AssignmentsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	lib, err := h.svc.SetAssignments(c.Request.Context(), id, body.WorkspaceIDs, getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, lib)
}
