package promptlib

import (
	"sort"

	"github.com/nebari-dev/promptlib/internal/models"
)

// IsAccessible reports whether workspaceID may use lib: the library must be
// enabled and either unassigned, which makes it global, or assigned to the
// workspace.
func IsAccessible(workspaceID uint, lib models.PromptLibrary) bool {
	if !lib.Enabled {
		return false
	}
	if len(lib.Assignments) == 0 {
		return true
	}
	for _, a := range lib.Assignments {
		if a.WorkspaceID == workspaceID {
			return true
		}
	}
	return false
}

// AccessibleLibraries returns the libraries workspaceID may use in creation
// order. The returned copies carry no assignments.
func AccessibleLibraries(workspaceID uint, libs []models.PromptLibrary) []models.PromptLibrary {
	out := []models.PromptLibrary{}
	for _, lib := range libs {
		if !IsAccessible(workspaceID, lib) {
			continue
		}
		lib.Assignments = nil
		out = append(out, lib)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ResolveActiveTemplate picks the legacy template for a workspace. The
// workspace's selection wins when it names an enabled template; otherwise
// the enabled default applies. A stale selection is never an error.
func ResolveActiveTemplate(activeID *uint, templates []models.PromptTemplate) *models.PromptTemplate {
	if activeID != nil {
		for i := range templates {
			if templates[i].ID == *activeID && templates[i].Enabled {
				t := templates[i]
				return &t
			}
		}
	}
	return DefaultTemplate(templates)
}

// DefaultTemplate returns the enabled template flagged as default, if any.
func DefaultTemplate(templates []models.PromptTemplate) *models.PromptTemplate {
	for i := range templates {
		if templates[i].IsDefault && templates[i].Enabled {
			t := templates[i]
			return &t
		}
	}
	return nil
}
