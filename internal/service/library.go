package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/audit"
	"github.com/nebari-dev/promptlib/internal/cache"
	"github.com/nebari-dev/promptlib/internal/models"
	"github.com/nebari-dev/promptlib/internal/promptlib"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// LibraryService manages structured prompt libraries and serves the
// workspace-facing evaluate and render operations.
type LibraryService struct {
	db    *gorm.DB
	cache cache.Cache
	fills singleflight.Group
}

// NewLibraryService creates a new LibraryService. A nil cache disables caching.
func NewLibraryService(db *gorm.DB, c cache.Cache) *LibraryService {
	if c == nil {
		c = cache.Noop{}
	}
	return &LibraryService{db: db, cache: c}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("order_index ASC").Order("id ASC")
}

func (s *LibraryService) withRelations(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Preload("Assignments")
}

// List returns every library in creation order, with assignments.
func (s *LibraryService) List(ctx context.Context) ([]LibraryDetail, error) {
	var libs []models.PromptLibrary
	if err := s.withRelations(ctx).Order("created_at ASC").Order("id ASC").Find(&libs).Error; err != nil {
		return nil, err
	}
	details := make([]LibraryDetail, 0, len(libs))
	for _, lib := range libs {
		details = append(details, *newLibraryDetail(lib, nil))
	}
	return details, nil
}

// Get returns a single library with its questions and workspace ids.
func (s *LibraryService) Get(ctx context.Context, id uint) (*LibraryDetail, error) {
	lib, err := s.load(s.withRelations(ctx), id)
	if err != nil {
		return nil, err
	}
	return newLibraryDetail(*lib, nil), nil
}

func (s *LibraryService) load(db *gorm.DB, id uint) (*models.PromptLibrary, error) {
	var lib models.PromptLibrary
	if err := db.First(&lib, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &lib, nil
}

func checkLibrary(req LibraryRequest) ([]promptlib.Question, []string, error) {
	qs, warnings, err := promptlib.CheckDefinition(promptlib.Definition{
		Name:      req.Name,
		Template:  req.Template,
		Questions: req.Questions,
	})
	if err != nil {
		return nil, nil, &ValidationError{Message: err.Error()}
	}
	return qs, warnings, nil
}

func insertQuestions(tx *gorm.DB, libraryID uint, qs []promptlib.Question) error {
	if len(qs) == 0 {
		return nil
	}
	rows := make([]models.PromptLibraryQuestion, 0, len(qs))
	for _, q := range qs {
		rows = append(rows, promptlib.QuestionToModel(libraryID, q))
	}
	return tx.Create(&rows).Error
}

// Create validates the definition and stores the library with its questions.
func (s *LibraryService) Create(ctx context.Context, req LibraryRequest, userID uuid.UUID) (*LibraryDetail, error) {
	qs, warnings, err := checkLibrary(req)
	if err != nil {
		return nil, err
	}

	workspaceIDs := dedupe(req.WorkspaceIDs)

	lib := models.PromptLibrary{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Template:    req.Template,
		Enabled:     req.Enabled == nil || *req.Enabled,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Questions", "Assignments").Create(&lib).Error; err != nil {
			return fmt.Errorf("create library: %w", err)
		}
		if err := insertQuestions(tx, lib.ID, qs); err != nil {
			return fmt.Errorf("create questions: %w", err)
		}
		if err := replaceAssignments(tx, lib.ID, workspaceIDs); err != nil {
			return err
		}
		return audit.LogAction(tx, userID, audit.ActionCreateLibrary, audit.Resource(audit.ResourceLibrary, lib.ID), map[string]interface{}{
			"name":          lib.Name,
			"questions":     len(qs),
			"workspace_ids": workspaceIDs,
		})
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)

	for _, w := range warnings {
		slog.Info("Prompt library definition warning", "library_id", lib.ID, "warning", w)
	}
	return s.getWithWarnings(ctx, lib.ID, warnings)
}

// Update changes a library's fields. Questions are replaced wholesale when
// req.Questions is non-nil and kept otherwise.
func (s *LibraryService) Update(ctx context.Context, id uint, req LibraryRequest, userID uuid.UUID) (*LibraryDetail, error) {
	var warnings []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lib, err := s.load(tx.Preload("Questions", orderedQuestions), id)
		if err != nil {
			return err
		}

		replace := req.Questions != nil
		if !replace {
			req.Questions = specsFromModels(lib.Questions)
		}
		qs, w, err := checkLibrary(req)
		if err != nil {
			return err
		}
		warnings = w

		updates := map[string]interface{}{
			"name":        strings.TrimSpace(req.Name),
			"description": req.Description,
			"template":    req.Template,
		}
		if req.Enabled != nil {
			updates["enabled"] = *req.Enabled
		}
		if err := tx.Model(lib).Omit("Questions", "Assignments").Updates(updates).Error; err != nil {
			return fmt.Errorf("update library: %w", err)
		}

		if replace {
			if err := tx.Where("library_id = ?", id).Delete(&models.PromptLibraryQuestion{}).Error; err != nil {
				return fmt.Errorf("delete questions: %w", err)
			}
			if err := insertQuestions(tx, id, qs); err != nil {
				return fmt.Errorf("create questions: %w", err)
			}
		}

		if req.WorkspaceIDs != nil {
			ids := dedupe(req.WorkspaceIDs)
			if err := replaceAssignments(tx, id, ids); err != nil {
				return err
			}
			updates["workspace_ids"] = ids
		}

		updates["questions_replaced"] = replace
		return audit.LogAction(tx, userID, audit.ActionUpdateLibrary, audit.Resource(audit.ResourceLibrary, id), updates)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return s.getWithWarnings(ctx, id, warnings)
}

func (s *LibraryService) getWithWarnings(ctx context.Context, id uint, warnings []string) (*LibraryDetail, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Warnings = warnings
	return detail, nil
}

// specsFromModels turns stored questions back into admin input so an update
// that leaves questions alone is still checked against the new template.
func specsFromModels(rows []models.PromptLibraryQuestion) []promptlib.QuestionSpec {
	specs := make([]promptlib.QuestionSpec, 0, len(rows))
	for _, row := range rows {
		q := promptlib.QuestionFromModel(row)
		required, order := q.Required, q.OrderIndex
		specs = append(specs, promptlib.QuestionSpec{
			Variable:     q.Variable,
			Label:        q.Label,
			Type:         string(q.Type),
			Placeholder:  q.Placeholder,
			Required:     &required,
			Options:      q.Options,
			DefaultValue: q.DefaultValue,
			OrderIndex:   &order,
			ShowIf:       q.ShowIf,
		})
	}
	return specs
}

// Delete removes a library together with its questions and assignments.
func (s *LibraryService) Delete(ctx context.Context, id uint, userID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lib, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("library_id = ?", id).Delete(&models.PromptLibraryQuestion{}).Error; err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := tx.Where("library_id = ?", id).Delete(&models.PromptLibraryAssignment{}).Error; err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		if err := tx.Delete(lib).Error; err != nil {
			return fmt.Errorf("delete library: %w", err)
		}
		return audit.LogAction(tx, userID, audit.ActionDeleteLibrary, audit.Resource(audit.ResourceLibrary, id), map[string]interface{}{
			"name": lib.Name,
		})
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

// SetAssignments replaces the workspaces a library is scoped to. An empty
// list makes the library global. Unknown workspace ids are rejected and
// nothing is changed.
func (s *LibraryService) SetAssignments(ctx context.Context, id uint, workspaceIDs []uint, userID uuid.UUID) (*LibraryDetail, error) {
	ids := dedupe(workspaceIDs)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.load(tx, id); err != nil {
			return err
		}
		if err := replaceAssignments(tx, id, ids); err != nil {
			return err
		}
		return audit.LogAction(tx, userID, audit.ActionSetAssignments, audit.Resource(audit.ResourceLibrary, id), map[string]interface{}{
			"workspace_ids": ids,
		})
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return s.Get(ctx, id)
}

// replaceAssignments swaps a library's workspace rows for ids. It must run
// inside the caller's transaction.
func replaceAssignments(tx *gorm.DB, libraryID uint, ids []uint) error {
	if err := checkWorkspaceIDs(tx, ids); err != nil {
		return err
	}
	if err := tx.Where("library_id = ?", libraryID).Delete(&models.PromptLibraryAssignment{}).Error; err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	rows := make([]models.PromptLibraryAssignment, 0, len(ids))
	for _, wsID := range ids {
		rows = append(rows, models.PromptLibraryAssignment{LibraryID: libraryID, WorkspaceID: wsID})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("create assignments: %w", err)
	}
	return nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func checkWorkspaceIDs(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var found []uint
	if err := tx.Model(&models.Workspace{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}
	known := make(map[uint]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	var unknown []string
	for _, id := range ids {
		if !known[id] {
			unknown = append(unknown, strconv.FormatUint(uint64(id), 10))
		}
	}
	return &ValidationError{Message: "unknown workspace ids: " + strings.Join(unknown, ", ")}
}

// ListAccessible returns the enabled libraries a workspace may use, oldest
// first, without their assignment lists. Results are cached per workspace
// and concurrent misses for one workspace share a single database load.
func (s *LibraryService) ListAccessible(ctx context.Context, slug string) ([]models.PromptLibrary, error) {
	ws, err := findWorkspace(s.db.WithContext(ctx), slug)
	if err != nil {
		return nil, err
	}
	if libs, ok := s.cache.Get(ctx, ws.ID); ok {
		return libs, nil
	}

	// The epoch is taken before the load so a write committed meanwhile
	// makes the fill uncacheable, and later callers never join this fill.
	epoch := s.cache.Epoch(ctx)
	key := strconv.FormatUint(uint64(ws.ID), 10) + "@" + epoch
	v, err, _ := s.fills.Do(key, func() (interface{}, error) {
		var libs []models.PromptLibrary
		if err := s.withRelations(ctx).Where("enabled = ?", true).Find(&libs).Error; err != nil {
			return nil, err
		}
		accessible := promptlib.AccessibleLibraries(ws.ID, libs)
		s.cache.Set(ctx, epoch, ws.ID, accessible)
		return accessible, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.PromptLibrary), nil
}

func (s *LibraryService) accessibleForm(ctx context.Context, slug string, libraryID uint) (promptlib.Form, error) {
	libs, err := s.ListAccessible(ctx, slug)
	if err != nil {
		return promptlib.Form{}, err
	}
	for _, lib := range libs {
		if lib.ID == libraryID {
			logMalformed(lib)
			return promptlib.FormFromModel(lib), nil
		}
	}
	return promptlib.Form{}, ErrNotFound
}

// logMalformed reports stored option or condition text that decodes to nothing.
func logMalformed(lib models.PromptLibrary) {
	for _, q := range lib.Questions {
		if q.Options != nil && *q.Options != "" && !json.Valid([]byte(*q.Options)) {
			slog.Debug("Ignoring malformed question options", "library_id", lib.ID, "variable", q.Variable)
		}
		if q.ShowIf != nil && *q.ShowIf != "" && promptlib.ParseShowIf(*q.ShowIf) == nil {
			slog.Debug("Ignoring malformed question condition", "library_id", lib.ID, "variable", q.Variable)
		}
	}
}

// Evaluate reports which questions are visible and which are still missing.
func (s *LibraryService) Evaluate(ctx context.Context, slug string, libraryID uint, answers promptlib.Answers) (*promptlib.Evaluation, error) {
	form, err := s.accessibleForm(ctx, slug, libraryID)
	if err != nil {
		return nil, err
	}
	ev := promptlib.Evaluate(form.Questions, answers)
	return &ev, nil
}

// ValidateAndRender renders the library's template when every visible
// required question is answered, and lists the missing variables otherwise.
func (s *LibraryService) ValidateAndRender(ctx context.Context, slug string, libraryID uint, answers promptlib.Answers) (*promptlib.Result, error) {
	form, err := s.accessibleForm(ctx, slug, libraryID)
	if err != nil {
		return nil, err
	}
	res := promptlib.Submit(form, answers)
	if res.OK {
		if unresolved := promptlib.Unresolved(res.Prompt); len(unresolved) > 0 {
			slog.Debug("Rendered prompt has unresolved placeholders", "library_id", libraryID, "placeholders", unresolved)
		}
	} else {
		slog.Debug("Prompt answers incomplete", "library_id", libraryID, "missing", res.Missing)
	}
	return &res, nil
}
