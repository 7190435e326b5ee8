package db

import (
	"path/filepath"
	"testing"

	"github.com/nebari-dev/promptlib/internal/config"
	"github.com/nebari-dev/promptlib/internal/models"
	"gorm.io/gorm/logger"
)

func TestNew_UnsupportedDriver(t *testing.T) {
	if _, err := New(config.DatabaseConfig{Driver: "mysql"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestNewAndMigrate_SQLite(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:         "sqlite",
		DSN:            filepath.Join(t.TempDir(), "promptlib.db"),
		ConnectRetries: 2,
	}
	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	// Second run must be a no-op
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	for _, model := range []any{
		&models.Workspace{},
		&models.PromptTemplate{},
		&models.PromptLibrary{},
		&models.PromptLibraryQuestion{},
		&models.PromptLibraryAssignment{},
		&models.AuditLog{},
	} {
		if !db.Migrator().HasTable(model) {
			t.Errorf("expected table for %T", model)
		}
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		t.Fatalf("GetSchemaVersion failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("expected schema version %q, got %q", SchemaVersion, version)
	}
}

func TestGetSchemaVersion_Unset(t *testing.T) {
	db := setupTestDB(t)
	version, err := GetSchemaVersion(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != "" {
		t.Errorf("expected empty version, got %q", version)
	}
}

func TestGormLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"":      logger.Silent,
		"debug": logger.Info,
		"info":  logger.Info,
		"warn":  logger.Warn,
		"error": logger.Error,
	}
	for in, want := range tests {
		if got := gormLogLevel(in); got != want {
			t.Errorf("gormLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
