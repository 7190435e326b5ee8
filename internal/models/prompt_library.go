package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PromptLibrary is a structured prompt template whose body contains
// {{variable}} placeholders filled from the answers to its questions.
type PromptLibrary struct {
	ID          uint                    `gorm:"primarykey" json:"id"`
	UUID        uuid.UUID               `gorm:"type:text;uniqueIndex;not null" json:"uuid"`
	Name        string                  `gorm:"not null" json:"name"`
	Description *string                 `gorm:"type:text" json:"description"`
	Template    string                  `gorm:"type:text;not null" json:"template"`
	Enabled     bool                    `gorm:"not null;index" json:"enabled"`
	Questions   []PromptLibraryQuestion `gorm:"foreignKey:LibraryID" json:"questions"`
	// Assignments is never serialized; admin responses expose workspace ids explicitly.
	Assignments []PromptLibraryAssignment `gorm:"foreignKey:LibraryID" json:"-"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// TableName ensures GORM uses the "prompt_libraries" table
func (PromptLibrary) TableName() string {
	return "prompt_libraries"
}

// BeforeCreate hook to generate UUID
func (l *PromptLibrary) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	return nil
}

// WorkspaceIDs returns the ids of the workspaces the library is assigned to.
// An empty result means the library is visible to every workspace.
func (l *PromptLibrary) WorkspaceIDs() []uint {
	ids := make([]uint, 0, len(l.Assignments))
	for _, a := range l.Assignments {
		ids = append(ids, a.WorkspaceID)
	}
	return ids
}

// PromptLibraryQuestion is one form field of a library. Options and ShowIf
// hold the JSON encoding written by the admin API; they are decoded leniently.
type PromptLibraryQuestion struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	LibraryID    uint      `gorm:"not null;index;uniqueIndex:idx_question_library_variable" json:"library_id"`
	Variable     string    `gorm:"not null;uniqueIndex:idx_question_library_variable" json:"variable"`
	Label        string    `gorm:"not null" json:"label"`
	Type         string    `gorm:"not null" json:"type"`
	Placeholder  *string   `json:"placeholder"`
	Required     bool      `gorm:"not null" json:"required"`
	Options      *string   `gorm:"type:text" json:"options"`
	DefaultValue *string   `gorm:"type:text" json:"default_value"`
	OrderIndex   int       `gorm:"not null;default:0" json:"order_index"`
	ShowIf       *string   `gorm:"type:text" json:"show_if"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName ensures GORM uses the "prompt_library_questions" table
func (PromptLibraryQuestion) TableName() string {
	return "prompt_library_questions"
}

// PromptLibraryAssignment scopes a library to one workspace.
type PromptLibraryAssignment struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	LibraryID   uint      `gorm:"not null;uniqueIndex:idx_assignment_library_workspace" json:"library_id"`
	WorkspaceID uint      `gorm:"not null;index;uniqueIndex:idx_assignment_library_workspace" json:"workspace_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName ensures GORM uses the "prompt_library_assignments" table
func (PromptLibraryAssignment) TableName() string {
	return "prompt_library_assignments"
}
