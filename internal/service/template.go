package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/audit"
	"github.com/nebari-dev/promptlib/internal/models"
	"github.com/nebari-dev/promptlib/internal/promptlib"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TemplateService manages legacy prompt templates and each workspace's
// active template selection.
type TemplateService struct {
	db *gorm.DB
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{db: db}
}

// List returns every template, most recently updated first.
func (s *TemplateService) List(ctx context.Context) ([]models.PromptTemplate, error) {
	var templates []models.PromptTemplate
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Order("id DESC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// ListEnabled returns the templates users may pick from.
func (s *TemplateService) ListEnabled(ctx context.Context) ([]models.PromptTemplate, error) {
	var templates []models.PromptTemplate
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Order("name ASC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// Get returns a single template.
func (s *TemplateService) Get(ctx context.Context, id uint) (*models.PromptTemplate, error) {
	var t models.PromptTemplate
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func validateTemplateRequest(req TemplateRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return &ValidationError{Message: "name is required"}
	}
	if strings.TrimSpace(req.Content) == "" {
		return &ValidationError{Message: "content is required"}
	}
	return nil
}

// claimDefault unsets the default flag on every template except keepID.
// It must run before the new default is written so the single-default
// index never sees two rows. On postgres the template rows are locked
// first, which serializes concurrent swaps; sqlite has a single writer.
func claimDefault(tx *gorm.DB, keepID uint) error {
	if tx.Dialector.Name() == "postgres" {
		var ids []uint
		if err := tx.Model(&models.PromptTemplate{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("lock templates: %w", err)
		}
	}
	if err := tx.Model(&models.PromptTemplate{}).
		Where("is_default = ? AND id <> ?", true, keepID).
		Update("is_default", false).Error; err != nil {
		return fmt.Errorf("clear previous default: %w", err)
	}
	return nil
}

// defaultConflict reports a lost race on the single-default index as a
// conflict the caller can retry.
func defaultConflict(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return &ConflictError{Message: "another template became the default concurrently; retry"}
	}
	return err
}

// isUniqueViolation matches driver errors that gorm did not translate.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLSTATE 23505")
}

// Create stores a new template. When it is marked default, the previous
// default is cleared in the same transaction.
func (s *TemplateService) Create(ctx context.Context, req TemplateRequest, userID uuid.UUID) (*models.PromptTemplate, error) {
	if err := validateTemplateRequest(req); err != nil {
		return nil, err
	}

	t := models.PromptTemplate{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Content:     req.Content,
		Enabled:     req.Enabled == nil || *req.Enabled,
		IsDefault:   req.IsDefault != nil && *req.IsDefault,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if t.IsDefault {
			if err := claimDefault(tx, 0); err != nil {
				return err
			}
		}
		if err := tx.Create(&t).Error; err != nil {
			return defaultConflict(fmt.Errorf("create template: %w", err))
		}
		return audit.LogAction(tx, userID, audit.ActionCreateTemplate, audit.Resource(audit.ResourceTemplate, t.ID), map[string]interface{}{
			"name":       t.Name,
			"is_default": t.IsDefault,
		})
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update changes a template. Setting IsDefault clears the previous default
// atomically; clearing it leaves the catalogue without a default.
func (s *TemplateService) Update(ctx context.Context, id uint, req TemplateRequest, userID uuid.UUID) (*models.PromptTemplate, error) {
	if err := validateTemplateRequest(req); err != nil {
		return nil, err
	}

	var t models.PromptTemplate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, id).Error; err != nil {
			return notFound(err)
		}

		updates := map[string]interface{}{
			"name":        strings.TrimSpace(req.Name),
			"description": req.Description,
			"content":     req.Content,
		}
		if req.Enabled != nil {
			updates["enabled"] = *req.Enabled
		}
		if req.IsDefault != nil {
			updates["is_default"] = *req.IsDefault
			if *req.IsDefault {
				if err := claimDefault(tx, t.ID); err != nil {
					return err
				}
			}
		}
		if err := tx.Model(&t).Updates(updates).Error; err != nil {
			return defaultConflict(fmt.Errorf("update template: %w", err))
		}
		if err := tx.First(&t, id).Error; err != nil {
			return err
		}
		return audit.LogAction(tx, userID, audit.ActionUpdateTemplate, audit.Resource(audit.ResourceTemplate, t.ID), updates)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes a template. Workspaces still pointing at it fall back to
// the default on their next resolution.
func (s *TemplateService) Delete(ctx context.Context, id uint, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.PromptTemplate
		if err := tx.First(&t, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Delete(&t).Error; err != nil {
			return fmt.Errorf("delete template: %w", err)
		}
		return audit.LogAction(tx, userID, audit.ActionDeleteTemplate, audit.Resource(audit.ResourceTemplate, id), map[string]interface{}{
			"name": t.Name,
		})
	})
}

// SetDefault makes id the single default template. The swap is atomic.
func (s *TemplateService) SetDefault(ctx context.Context, id uint, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.PromptTemplate
		if err := tx.First(&t, id).Error; err != nil {
			return notFound(err)
		}
		if err := claimDefault(tx, id); err != nil {
			return err
		}
		if err := tx.Model(&t).Update("is_default", true).Error; err != nil {
			return defaultConflict(fmt.Errorf("set default: %w", err))
		}
		return audit.LogAction(tx, userID, audit.ActionSetDefault, audit.Resource(audit.ResourceTemplate, id), nil)
	})
}

// ResolveActive returns the template a workspace should use: its enabled
// selection, else the enabled default, else nil. A stale selection is
// never reported as an error.
func (s *TemplateService) ResolveActive(ctx context.Context, slug string) (*models.PromptTemplate, error) {
	db := s.db.WithContext(ctx)
	ws, err := findWorkspace(db, slug)
	if err != nil {
		return nil, err
	}

	query := db.Where("is_default = ?", true)
	if ws.ActivePromptTemplateID != nil {
		query = query.Or("id = ?", *ws.ActivePromptTemplateID)
	}
	var candidates []models.PromptTemplate
	if err := query.Find(&candidates).Error; err != nil {
		return nil, err
	}

	resolved := promptlib.ResolveActiveTemplate(ws.ActivePromptTemplateID, candidates)
	if resolved != nil && (ws.ActivePromptTemplateID == nil || *ws.ActivePromptTemplateID != resolved.ID) {
		slog.Debug("Workspace using default template", "workspace", slug, "selected", ws.ActivePromptTemplateID, "template_id", resolved.ID)
	}
	return resolved, nil
}

// SetActive records the workspace's template selection; nil clears it.
func (s *TemplateService) SetActive(ctx context.Context, slug string, templateID *uint, userID uuid.UUID) (*models.Workspace, error) {
	var ws *models.Workspace
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if ws, err = findWorkspace(tx, slug); err != nil {
			return err
		}
		if templateID != nil {
			var count int64
			if err := tx.Model(&models.PromptTemplate{}).Where("id = ?", *templateID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return &ValidationError{Message: fmt.Sprintf("template %d does not exist", *templateID)}
			}
		}
		if err := tx.Model(ws).Update("active_prompt_template_id", templateID).Error; err != nil {
			return fmt.Errorf("set active template: %w", err)
		}
		ws.ActivePromptTemplateID = templateID
		return audit.LogAction(tx, userID, audit.ActionSetActive, audit.Resource(audit.ResourceWorkspace, ws.ID), map[string]interface{}{
			"template_id": templateID,
		})
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}
