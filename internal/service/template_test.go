package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/models"
	"gorm.io/gorm"
)

func boolPtr(b bool) *bool { return &b }

func createTemplate(t *testing.T, svc *TemplateService, name string, enabled, isDefault bool) *models.PromptTemplate {
	t.Helper()
	tmpl, err := svc.Create(context.Background(), TemplateRequest{
		Name:      name,
		Content:   name + " instructions",
		Enabled:   boolPtr(enabled),
		IsDefault: boolPtr(isDefault),
	}, uuid.Nil)
	if err != nil {
		t.Fatalf("create template %s: %v", name, err)
	}
	return tmpl
}

func defaultIDs(t *testing.T, db *gorm.DB) []uint {
	t.Helper()
	var ids []uint
	if err := db.Model(&models.PromptTemplate{}).Where("is_default = ?", true).Order("id").Pluck("id", &ids).Error; err != nil {
		t.Fatalf("pluck defaults: %v", err)
	}
	return ids
}

func TestTemplateCreate_Validation(t *testing.T) {
	svc := NewTemplateService(testDB(t))
	_, err := svc.Create(context.Background(), TemplateRequest{Name: " ", Content: "x"}, uuid.Nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	_, err = svc.Create(context.Background(), TemplateRequest{Name: "x"}, uuid.Nil)
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for empty content, got %v", err)
	}
}

func TestTemplateCreate_PersistsDisabled(t *testing.T) {
	db := testDB(t)
	svc := NewTemplateService(db)
	tmpl := createTemplate(t, svc, "off", false, false)

	got, err := svc.Get(context.Background(), tmpl.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Enabled {
		t.Error("expected disabled template to stay disabled")
	}

	enabled, err := svc.ListEnabled(context.Background())
	if err != nil {
		t.Fatalf("ListEnabled: %v", err)
	}
	if len(enabled) != 0 {
		t.Errorf("expected no enabled templates, got %d", len(enabled))
	}
}

func TestTemplateDefaultSwap(t *testing.T) {
	db := testDB(t)
	svc := NewTemplateService(db)
	ctx := context.Background()

	a := createTemplate(t, svc, "a", true, true)
	b := createTemplate(t, svc, "b", true, true)

	if ids := defaultIDs(t, db); len(ids) != 1 || ids[0] != b.ID {
		t.Fatalf("expected only b to be default after create, got %v", ids)
	}

	if err := svc.SetDefault(ctx, a.ID, uuid.Nil); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if ids := defaultIDs(t, db); len(ids) != 1 || ids[0] != a.ID {
		t.Fatalf("expected only a to be default, got %v", ids)
	}

	// Update with is_default moves the flag too
	updated, err := svc.Update(ctx, b.ID, TemplateRequest{Name: "b2", Content: "new", IsDefault: boolPtr(true)}, uuid.Nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.IsDefault || updated.Name != "b2" || updated.Content != "new" {
		t.Errorf("unexpected updated template: %+v", updated)
	}
	if ids := defaultIDs(t, db); len(ids) != 1 || ids[0] != b.ID {
		t.Fatalf("expected only b to be default after update, got %v", ids)
	}

	if err := svc.SetDefault(ctx, 999, uuid.Nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	// Failed swap leaves the existing default in place
	if ids := defaultIDs(t, db); len(ids) != 1 || ids[0] != b.ID {
		t.Errorf("expected default unchanged after failed swap, got %v", ids)
	}
	if n := countAudit(t, db, "set_default_template"); n != 1 {
		t.Errorf("expected 1 set_default audit entry, got %d", n)
	}
}

func TestTemplateDefault_ConcurrentSwaps(t *testing.T) {
	db := testDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	svc := NewTemplateService(db)
	ctx := context.Background()

	var templates []*models.PromptTemplate
	for i := 0; i < 6; i++ {
		templates = append(templates, createTemplate(t, svc, fmt.Sprintf("t%d", i), true, false))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(templates)*3)
	for round := 0; round < 3; round++ {
		for _, tmpl := range templates {
			wg.Add(1)
			go func(id uint) {
				defer wg.Done()
				errs <- svc.SetDefault(ctx, id, uuid.Nil)
			}(tmpl.ID)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		var ce *ConflictError
		if err != nil && !errors.As(err, &ce) {
			t.Errorf("SetDefault: %v", err)
		}
	}
	if ids := defaultIDs(t, db); len(ids) != 1 {
		t.Fatalf("expected exactly one default after concurrent swaps, got %v", ids)
	}
}

func TestTemplateDefault_IndexRejectsSecond(t *testing.T) {
	db := testDB(t)
	svc := NewTemplateService(db)
	createTemplate(t, svc, "a", true, true)

	// Writes that bypass the service still cannot add a second default.
	err := db.Create(&models.PromptTemplate{Name: "b", Content: "b", Enabled: true, IsDefault: true}).Error
	if err == nil {
		t.Fatal("expected the single-default index to reject a second default")
	}
	var ce *ConflictError
	if !errors.As(defaultConflict(err), &ce) {
		t.Errorf("expected the index violation to map to ConflictError, got %v", defaultConflict(err))
	}
	if ids := defaultIDs(t, db); len(ids) != 1 {
		t.Errorf("expected one default, got %v", ids)
	}

	// Non-default rows are unconstrained.
	for i := 0; i < 2; i++ {
		if err := db.Create(&models.PromptTemplate{Name: fmt.Sprintf("plain%d", i), Content: "x", Enabled: true}).Error; err != nil {
			t.Fatalf("create non-default: %v", err)
		}
	}
}

func TestTemplateUpdate_KeepsUnsetFlags(t *testing.T) {
	svc := NewTemplateService(testDB(t))
	tmpl := createTemplate(t, svc, "a", false, true)

	updated, err := svc.Update(context.Background(), tmpl.ID, TemplateRequest{Name: "a", Content: "changed"}, uuid.Nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Enabled || !updated.IsDefault {
		t.Errorf("expected flags unchanged, got enabled=%v default=%v", updated.Enabled, updated.IsDefault)
	}

	if _, err := svc.Update(context.Background(), 404, TemplateRequest{Name: "a", Content: "b"}, uuid.Nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTemplateDelete(t *testing.T) {
	svc := NewTemplateService(testDB(t))
	ctx := context.Background()
	tmpl := createTemplate(t, svc, "a", true, false)

	if err := svc.Delete(ctx, tmpl.ID, uuid.Nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, tmpl.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, tmpl.ID, uuid.Nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestResolveActive(t *testing.T) {
	db := testDB(t)
	svc := NewTemplateService(db)
	ctx := context.Background()
	ws := createWorkspace(t, db, "team")

	// Nothing selected and no default
	got, err := svc.ResolveActive(ctx, ws.Slug)
	if err != nil {
		t.Fatalf("ResolveActive: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}

	def := createTemplate(t, svc, "default", true, true)
	picked := createTemplate(t, svc, "picked", true, false)

	got, _ = svc.ResolveActive(ctx, ws.Slug)
	if got == nil || got.ID != def.ID {
		t.Fatalf("expected default template, got %+v", got)
	}

	if _, err := svc.SetActive(ctx, ws.Slug, &picked.ID, uuid.Nil); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	got, _ = svc.ResolveActive(ctx, ws.Slug)
	if got == nil || got.ID != picked.ID {
		t.Fatalf("expected picked template, got %+v", got)
	}

	// Disabling the selection falls back to the default
	if _, err := svc.Update(ctx, picked.ID, TemplateRequest{Name: "picked", Content: "x", Enabled: boolPtr(false)}, uuid.Nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = svc.ResolveActive(ctx, ws.Slug)
	if got == nil || got.ID != def.ID {
		t.Fatalf("expected fallback to default, got %+v", got)
	}

	// A disabled default resolves to nothing
	if _, err := svc.Update(ctx, def.ID, TemplateRequest{Name: "default", Content: "x", Enabled: boolPtr(false)}, uuid.Nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = svc.ResolveActive(ctx, ws.Slug)
	if got != nil {
		t.Errorf("expected nil with disabled default, got %+v", got)
	}

	if _, err := svc.ResolveActive(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown workspace, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	db := testDB(t)
	svc := NewTemplateService(db)
	ctx := context.Background()
	ws := createWorkspace(t, db, "team")
	tmpl := createTemplate(t, svc, "a", true, false)

	updated, err := svc.SetActive(ctx, ws.Slug, &tmpl.ID, uuid.Nil)
	if err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if updated.ActivePromptTemplateID == nil || *updated.ActivePromptTemplateID != tmpl.ID {
		t.Errorf("expected active id %d, got %v", tmpl.ID, updated.ActivePromptTemplateID)
	}

	missing := uint(42)
	var ve *ValidationError
	if _, err := svc.SetActive(ctx, ws.Slug, &missing, uuid.Nil); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for unknown template, got %v", err)
	}

	if _, err := svc.SetActive(ctx, ws.Slug, nil, uuid.Nil); err != nil {
		t.Fatalf("SetActive(nil): %v", err)
	}
	var stored models.Workspace
	db.First(&stored, ws.ID)
	if stored.ActivePromptTemplateID != nil {
		t.Errorf("expected selection cleared, got %v", *stored.ActivePromptTemplateID)
	}
}
