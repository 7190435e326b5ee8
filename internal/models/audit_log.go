package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records an administrative change to the prompt catalogue.
// UserID is uuid.Nil for changes made by the CLI or startup imports.
type AuditLog struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       uuid.UUID `gorm:"type:text;index" json:"user_id"`
	User         *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action       string    `gorm:"not null;index" json:"action"`
	ResourceKind string    `gorm:"index" json:"resource_kind"` // library, template, workspace, user, bundle
	Resource     string    `gorm:"not null" json:"resource"`   // kind:id, e.g. "library:3"
	DetailsJSON  string    `gorm:"type:text" json:"details_json"`
	Timestamp    time.Time `gorm:"not null;index" json:"timestamp"`
}
