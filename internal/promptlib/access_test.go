package promptlib

import (
	"testing"
	"time"

	"github.com/nebari-dev/promptlib/internal/models"
)

func library(id uint, enabled bool, created time.Time, workspaces ...uint) models.PromptLibrary {
	lib := models.PromptLibrary{ID: id, Name: "lib", Enabled: enabled, CreatedAt: created}
	for _, ws := range workspaces {
		lib.Assignments = append(lib.Assignments, models.PromptLibraryAssignment{LibraryID: id, WorkspaceID: ws})
	}
	return lib
}

func ids(libs []models.PromptLibrary) []uint {
	out := []uint{}
	for _, l := range libs {
		out = append(out, l.ID)
	}
	return out
}

func TestAccessibleLibraries_EmptyAssignmentIsGlobal(t *testing.T) {
	now := time.Now()
	global := library(1, true, now)
	for _, ws := range []uint{1, 7, 99} {
		got := AccessibleLibraries(ws, []models.PromptLibrary{global})
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("expected global library for workspace %d, got %v", ws, ids(got))
		}
	}
}

func TestAccessibleLibraries_Assigned(t *testing.T) {
	lib := library(1, true, time.Now(), 7)
	if got := AccessibleLibraries(8, []models.PromptLibrary{lib}); len(got) != 0 {
		t.Errorf("expected workspace 8 to be excluded, got %v", ids(got))
	}
	got := AccessibleLibraries(7, []models.PromptLibrary{lib})
	if len(got) != 1 {
		t.Fatalf("expected workspace 7 to be included, got %v", ids(got))
	}
	if got[0].Assignments != nil {
		t.Error("expected assignments to be stripped from the result")
	}
}

func TestAccessibleLibraries_DisabledAndOrder(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	libs := []models.PromptLibrary{
		library(3, true, base.Add(2*time.Hour)),
		library(1, true, base),
		library(2, false, base.Add(time.Hour)),
		library(4, true, base.Add(time.Hour), 5, 6),
	}
	got := ids(AccessibleLibraries(6, libs))
	want := []uint{1, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestResolveActiveTemplate(t *testing.T) {
	templates := []models.PromptTemplate{
		{ID: 1, Name: "default", Enabled: true, IsDefault: true},
		{ID: 2, Name: "chosen", Enabled: true},
		{ID: 3, Name: "disabled", Enabled: false},
	}
	id := func(v uint) *uint { return &v }

	tests := []struct {
		name   string
		active *uint
		want   uint
	}{
		{"no selection uses default", nil, 1},
		{"selection wins", id(2), 2},
		{"disabled selection falls back", id(3), 1},
		{"deleted selection falls back", id(42), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveActiveTemplate(tt.active, templates)
			if got == nil || got.ID != tt.want {
				t.Errorf("expected template %d, got %+v", tt.want, got)
			}
		})
	}
}

func TestResolveActiveTemplate_NoDefault(t *testing.T) {
	templates := []models.PromptTemplate{
		{ID: 1, Enabled: false, IsDefault: true},
		{ID: 2, Enabled: true},
	}
	disabled := uint(1)
	if got := ResolveActiveTemplate(&disabled, templates); got != nil {
		t.Errorf("expected no template when the default is disabled, got %+v", got)
	}
}
