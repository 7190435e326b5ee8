package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/audit"
	"github.com/nebari-dev/promptlib/internal/bundle"
	"github.com/nebari-dev/promptlib/internal/cache"
	"github.com/nebari-dev/promptlib/internal/models"
	"github.com/nebari-dev/promptlib/internal/promptlib"
	"gorm.io/gorm"
)

// BundleService imports and exports whole prompt catalogues.
type BundleService struct {
	db    *gorm.DB
	cache cache.Cache
}

// NewBundleService creates a new BundleService. A nil cache disables invalidation.
func NewBundleService(db *gorm.DB, c cache.Cache) *BundleService {
	if c == nil {
		c = cache.Noop{}
	}
	return &BundleService{db: db, cache: c}
}

// ImportCounts tallies the entries an import created or updated.
type ImportCounts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// ImportSummary is the outcome of a bundle import.
type ImportSummary struct {
	Workspaces ImportCounts `json:"workspaces"`
	Templates  ImportCounts `json:"templates"`
	Libraries  ImportCounts `json:"libraries"`
	Warnings   []string     `json:"warnings,omitempty"`
}

func (c *ImportCounts) add(created bool) {
	if created {
		c.Created++
	} else {
		c.Updated++
	}
}

// Import upserts the bundle's workspaces by slug, templates by name and
// libraries by name. Library questions and assignments are replaced. The
// whole bundle is applied in one transaction or not at all.
func (s *BundleService) Import(ctx context.Context, b *bundle.Bundle, userID uuid.UUID) (*ImportSummary, error) {
	summary := &ImportSummary{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range b.Workspaces {
			created, err := upsertWorkspace(tx, w)
			if err != nil {
				return err
			}
			summary.Workspaces.add(created)
		}

		for _, t := range b.Templates {
			created, err := upsertTemplate(tx, t)
			if err != nil {
				return err
			}
			summary.Templates.add(created)
		}

		for _, l := range b.Libraries {
			created, warnings, err := upsertLibrary(tx, l)
			if err != nil {
				return err
			}
			summary.Libraries.add(created)
			for _, w := range warnings {
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("library %q: %s", l.Name, w))
			}
		}

		return audit.LogAction(tx, userID, audit.ActionImportBundle, audit.Resource(audit.ResourceBundle, "import"), summary)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return summary, nil
}

func upsertWorkspace(tx *gorm.DB, w bundle.Workspace) (bool, error) {
	name := w.Name
	if name == "" {
		name = w.Slug
	}
	var ws models.Workspace
	err := tx.Where("slug = ?", w.Slug).First(&ws).Error
	if err != nil {
		if err = notFound(err); err != ErrNotFound {
			return false, err
		}
		ws = models.Workspace{Slug: w.Slug, Name: name}
		if err := tx.Create(&ws).Error; err != nil {
			return false, fmt.Errorf("create workspace %q: %w", w.Slug, err)
		}
		return true, nil
	}
	if err := tx.Model(&ws).Update("name", name).Error; err != nil {
		return false, fmt.Errorf("update workspace %q: %w", w.Slug, err)
	}
	return false, nil
}

func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func upsertTemplate(tx *gorm.DB, t bundle.Template) (bool, error) {
	values := map[string]interface{}{
		"description": optionalText(t.Description),
		"content":     t.Content,
		"enabled":     t.Enabled == nil || *t.Enabled,
		"is_default":  t.Default,
	}

	var existing models.PromptTemplate
	err := tx.Where("name = ?", t.Name).Order("id ASC").First(&existing).Error
	if t.Default && (err == nil || errors.Is(err, gorm.ErrRecordNotFound)) {
		// existing.ID is zero when the template is new.
		if err := claimDefault(tx, existing.ID); err != nil {
			return false, err
		}
	}
	created := false
	switch notFound(err) {
	case nil:
		if err := tx.Model(&existing).Updates(values).Error; err != nil {
			return false, defaultConflict(fmt.Errorf("update template %q: %w", t.Name, err))
		}
	case ErrNotFound:
		existing = models.PromptTemplate{
			Name:        t.Name,
			Description: optionalText(t.Description),
			Content:     t.Content,
			Enabled:     t.Enabled == nil || *t.Enabled,
			IsDefault:   t.Default,
		}
		if err := tx.Create(&existing).Error; err != nil {
			return false, defaultConflict(fmt.Errorf("create template %q: %w", t.Name, err))
		}
		created = true
	default:
		return false, err
	}
	return created, nil
}

func upsertLibrary(tx *gorm.DB, l bundle.Library) (bool, []string, error) {
	qs, warnings, err := promptlib.CheckDefinition(promptlib.Definition{
		Name:      l.Name,
		Template:  l.Template,
		Questions: l.Specs(),
	})
	if err != nil {
		return false, nil, &ValidationError{Message: fmt.Sprintf("library %q: %v", l.Name, err)}
	}

	workspaceIDs, err := resolveSlugs(tx, l.Workspaces)
	if err != nil {
		return false, nil, &ValidationError{Message: fmt.Sprintf("library %q: %v", l.Name, err)}
	}

	enabled := l.Enabled == nil || *l.Enabled
	var lib models.PromptLibrary
	err = tx.Where("name = ?", l.Name).Order("id ASC").First(&lib).Error
	created := false
	switch notFound(err) {
	case nil:
		if err := tx.Model(&lib).Omit("Questions", "Assignments").Updates(map[string]interface{}{
			"description": optionalText(l.Description),
			"template":    l.Template,
			"enabled":     enabled,
		}).Error; err != nil {
			return false, nil, fmt.Errorf("update library %q: %w", l.Name, err)
		}
		if err := tx.Where("library_id = ?", lib.ID).Delete(&models.PromptLibraryQuestion{}).Error; err != nil {
			return false, nil, err
		}
	case ErrNotFound:
		lib = models.PromptLibrary{
			Name:        l.Name,
			Description: optionalText(l.Description),
			Template:    l.Template,
			Enabled:     enabled,
		}
		if err := tx.Omit("Questions", "Assignments").Create(&lib).Error; err != nil {
			return false, nil, fmt.Errorf("create library %q: %w", l.Name, err)
		}
		created = true
	default:
		return false, nil, err
	}

	if err := insertQuestions(tx, lib.ID, qs); err != nil {
		return false, nil, fmt.Errorf("create questions for %q: %w", l.Name, err)
	}
	if err := replaceAssignments(tx, lib.ID, workspaceIDs); err != nil {
		return false, nil, fmt.Errorf("assign library %q: %w", l.Name, err)
	}
	return created, warnings, nil
}

func resolveSlugs(tx *gorm.DB, slugs []string) ([]uint, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	var workspaces []models.Workspace
	if err := tx.Where("slug IN ?", slugs).Find(&workspaces).Error; err != nil {
		return nil, err
	}
	bySlug := make(map[string]uint, len(workspaces))
	for _, ws := range workspaces {
		bySlug[ws.Slug] = ws.ID
	}

	var ids []uint
	var unknown []string
	for _, slug := range slugs {
		id, ok := bySlug[slug]
		if !ok {
			unknown = append(unknown, slug)
			continue
		}
		ids = append(ids, id)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown workspaces: %s", strings.Join(unknown, ", "))
	}
	return dedupe(ids), nil
}

// Export describes every stored workspace, template and library.
func (s *BundleService) Export(ctx context.Context) (*bundle.Bundle, error) {
	db := s.db.WithContext(ctx)
	out := &bundle.Bundle{}

	var workspaces []models.Workspace
	if err := db.Order("slug ASC").Find(&workspaces).Error; err != nil {
		return nil, err
	}
	slugs := make(map[uint]string, len(workspaces))
	for _, ws := range workspaces {
		slugs[ws.ID] = ws.Slug
		out.Workspaces = append(out.Workspaces, bundle.Workspace{Slug: ws.Slug, Name: ws.Name})
	}

	var templates []models.PromptTemplate
	if err := db.Order("name ASC").Order("id ASC").Find(&templates).Error; err != nil {
		return nil, err
	}
	for _, t := range templates {
		out.Templates = append(out.Templates, bundle.FromTemplate(t))
	}

	var libs []models.PromptLibrary
	if err := db.Preload("Questions", orderedQuestions).Preload("Assignments").
		Order("created_at ASC").Order("id ASC").Find(&libs).Error; err != nil {
		return nil, err
	}
	for _, lib := range libs {
		var assigned []string
		for _, id := range lib.WorkspaceIDs() {
			if slug, ok := slugs[id]; ok {
				assigned = append(assigned, slug)
			}
		}
		out.Libraries = append(out.Libraries, bundle.FromLibrary(lib, assigned))
	}
	return out, nil
}
