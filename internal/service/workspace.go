package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/audit"
	"github.com/nebari-dev/promptlib/internal/models"
	"gorm.io/gorm"
)

var slugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// WorkspaceService manages the workspaces libraries and templates are scoped to.
type WorkspaceService struct {
	db *gorm.DB
}

// NewWorkspaceService creates a new WorkspaceService.
func NewWorkspaceService(db *gorm.DB) *WorkspaceService {
	return &WorkspaceService{db: db}
}

// List returns every workspace ordered by slug.
func (s *WorkspaceService) List(ctx context.Context) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	if err := s.db.WithContext(ctx).Order("slug ASC").Find(&workspaces).Error; err != nil {
		return nil, err
	}
	return workspaces, nil
}

// GetBySlug returns a single workspace.
func (s *WorkspaceService) GetBySlug(ctx context.Context, slug string) (*models.Workspace, error) {
	return findWorkspace(s.db.WithContext(ctx), slug)
}

// Create validates and stores a new workspace, then writes an audit log entry.
func (s *WorkspaceService) Create(ctx context.Context, req WorkspaceRequest, userID uuid.UUID) (*models.Workspace, error) {
	slug := strings.TrimSpace(req.Slug)
	if !slugRe.MatchString(slug) {
		return nil, &ValidationError{Message: "slug must contain only lowercase letters, digits and dashes"}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = slug
	}

	ws := models.Workspace{Slug: slug, Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Workspace{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{Message: fmt.Sprintf("workspace %q already exists", slug)}
		}
		if err := tx.Create(&ws).Error; err != nil {
			return fmt.Errorf("create workspace: %w", err)
		}
		return audit.LogAction(tx, userID, audit.ActionCreateWorkspace, audit.Resource(audit.ResourceWorkspace, ws.ID), map[string]interface{}{
			"slug": ws.Slug,
			"name": ws.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func findWorkspace(db *gorm.DB, slug string) (*models.Workspace, error) {
	var ws models.Workspace
	if err := db.Where("slug = ?", slug).First(&ws).Error; err != nil {
		return nil, notFound(err)
	}
	return &ws, nil
}
