package models

import (
	"time"
)

// Workspace is a chat workspace that prompt libraries can be scoped to.
type Workspace struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`
	Name string `gorm:"not null" json:"name"`
	// ActivePromptTemplateID is the legacy single-template selection. It may
	// point at a template that has since been disabled or deleted.
	ActivePromptTemplateID *uint     `gorm:"index" json:"active_prompt_template_id"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// TableName ensures GORM uses the "workspaces" table
func (Workspace) TableName() string {
	return "workspaces"
}
