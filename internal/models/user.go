package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account providers. Only basic accounts carry a PasswordHash.
const (
	ProviderBasic = "basic"
	ProviderOIDC  = "oidc"
	ProviderProxy = "proxy"
)

// User is an account that can author prompt templates and libraries.
// Admin rights live in the casbin policy, not on this row.
type User struct {
	ID           uuid.UUID      `gorm:"type:text;primary_key" json:"id"`
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	AvatarURL    string         `json:"avatar_url,omitempty"`
	Provider     string         `gorm:"not null;default:basic" json:"provider"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Provider == "" {
		u.Provider = ProviderBasic
	}
	return nil
}
