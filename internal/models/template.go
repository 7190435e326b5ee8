package models

import (
	"time"
)

// PromptTemplate is a legacy prompt library entry: literal system-instruction
// text without placeholders. At most one template has IsDefault set; the
// partial unique index enforces it.
type PromptTemplate struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Enabled     bool      `gorm:"not null;index" json:"enabled"`
	IsDefault   bool      `gorm:"not null;index:idx_prompt_templates_single_default,unique,where:is_default = true" json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName ensures GORM uses the "prompt_templates" table
func (PromptTemplate) TableName() string {
	return "prompt_templates"
}
