package models

import (
	"time"
)

// ServerConfig stores server-wide key-value settings
type ServerConfig struct {
	Key       string    `gorm:"primarykey;not null" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	ServerConfigKeyServerID      = "server_id"
	ServerConfigKeySchemaVersion = "schema_version"
)
