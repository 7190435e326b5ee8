package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/promptlib/internal/bundle"
	"github.com/nebari-dev/promptlib/internal/service"
)

const maxBundleBytes = 10 << 20

var contentTypes = map[bundle.Format]string{
	bundle.FormatYAML: "application/yaml",
	bundle.FormatTOML: "application/toml",
	bundle.FormatJSON: "application/json",
}

// BundleHandler serves catalogue import and export.
type BundleHandler struct {
	svc *service.BundleService
}

func NewBundleHandler(svc *service.BundleService) *BundleHandler {
	return &BundleHandler{svc: svc}
}

func queryFormat(c *gin.Context, fallback string) (bundle.Format, bool) {
	format, err := bundle.ParseFormat(c.DefaultQuery("format", fallback))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return "", false
	}
	return format, true
}

// Export godoc
// @Summary Export the prompt catalogue as a bundle (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param format query string false "yaml, toml or json (default yaml)"
// @Success 200 {string} string "Bundle document"
// @Failure 400 {object} ErrorResponse
// @Router /admin/bundle [get]
func (h *BundleHandler) Export(c *gin.Context) {
	format, ok := queryFormat(c, string(bundle.FormatYAML))
	if !ok {
		return
	}
	b, err := h.svc.Export(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	data, err := bundle.Encode(b, format)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypes[format], data)
}

// Import godoc
// @Summary Import a bundle into the prompt catalogue (admin only)
// @Description Upserts workspaces, templates and libraries in one transaction
// @Tags admin
// @Security BearerAuth
// @Accept plain
// @Produce json
// @Param format query string false "yaml, toml or json (default json)"
// @Success 200 {object} service.ImportSummary
// @Failure 400 {object} ErrorResponse
// @Router /admin/bundle [post]
func (h *BundleHandler) Import(c *gin.Context) {
	format, ok := queryFormat(c, string(bundle.FormatJSON))
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBundleBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "bundle too large"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}
	b, err := bundle.Decode(data, format)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	summary, err := h.svc.Import(c.Request.Context(), b, getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
