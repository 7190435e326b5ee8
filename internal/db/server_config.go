package db

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrServerIDNotInitialized is returned by GetServerID before the first
// GetOrCreateServerID call has stored an ID.
var ErrServerIDNotInitialized = errors.New("server ID not initialized")

var serverConfigKey = []clause.Column{{Name: "key"}}

func getServerConfig(db *gorm.DB, key string) (string, bool, error) {
	var row models.ServerConfig
	err := db.Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query server config %q: %w", key, err)
	}
	return row.Value, true, nil
}

func putServerConfig(db *gorm.DB, key, value string) error {
	row := models.ServerConfig{Key: key, Value: value}
	return db.Clauses(clause.OnConflict{
		Columns:   serverConfigKey,
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

// GetOrCreateServerID returns the persistent server ID, generating one on
// first start. Replicas racing on an empty database all end up with the
// row that won the insert.
func GetOrCreateServerID(db *gorm.DB) (string, error) {
	candidate := uuid.NewString()
	row := models.ServerConfig{Key: models.ServerConfigKeyServerID, Value: candidate}
	err := db.Clauses(clause.OnConflict{Columns: serverConfigKey, DoNothing: true}).Create(&row).Error
	if err != nil {
		return "", fmt.Errorf("failed to store server ID: %w", err)
	}

	serverID, ok, err := getServerConfig(db, models.ServerConfigKeyServerID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrServerIDNotInitialized
	}

	if serverID == candidate {
		slog.Info("Generated new server ID", "server_id", serverID)
	} else {
		slog.Debug("Using existing server ID", "server_id", serverID)
	}
	return serverID, nil
}

// GetServerID returns the stored server ID or ErrServerIDNotInitialized.
func GetServerID(db *gorm.DB) (string, error) {
	serverID, ok, err := getServerConfig(db, models.ServerConfigKeyServerID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrServerIDNotInitialized
	}
	return serverID, nil
}

// GetSchemaVersion returns the schema version written by the last Migrate,
// or "" for a database that predates version tracking.
func GetSchemaVersion(db *gorm.DB) (string, error) {
	version, _, err := getServerConfig(db, models.ServerConfigKeySchemaVersion)
	return version, err
}

func recordSchemaVersion(db *gorm.DB) error {
	return putServerConfig(db, models.ServerConfigKeySchemaVersion, SchemaVersion)
}
