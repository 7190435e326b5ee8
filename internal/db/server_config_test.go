package db

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "config.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.ServerConfig{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestGetOrCreateServerID_GeneratesUUID(t *testing.T) {
	db := setupTestDB(t)

	serverID, err := GetOrCreateServerID(db)
	if err != nil {
		t.Fatalf("GetOrCreateServerID failed: %v", err)
	}
	if _, err := uuid.Parse(serverID); err != nil {
		t.Errorf("server ID %q is not a UUID: %v", serverID, err)
	}

	stored, err := GetServerID(db)
	if err != nil {
		t.Fatalf("GetServerID failed: %v", err)
	}
	if stored != serverID {
		t.Errorf("GetServerID = %q, want %q", stored, serverID)
	}
}

func TestGetOrCreateServerID_KeepsExistingID(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Create(&models.ServerConfig{Key: models.ServerConfigKeyServerID, Value: "seeded"}).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		serverID, err := GetOrCreateServerID(db)
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if serverID != "seeded" {
			t.Errorf("call %d returned %q, want seeded", i, serverID)
		}
	}

	var count int64
	db.Model(&models.ServerConfig{}).Where("key = ?", models.ServerConfigKeyServerID).Count(&count)
	if count != 1 {
		t.Errorf("expected one server_id row, got %d", count)
	}
}

func TestGetOrCreateServerID_ConcurrentCallersAgree(t *testing.T) {
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	const callers = 4
	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = GetOrCreateServerID(db)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("caller %d got %q, caller 0 got %q", i, ids[i], ids[0])
		}
	}
}

func TestGetServerID_NotInitialized(t *testing.T) {
	db := setupTestDB(t)

	_, err := GetServerID(db)
	if !errors.Is(err, ErrServerIDNotInitialized) {
		t.Errorf("expected ErrServerIDNotInitialized, got %v", err)
	}
}

func TestRecordSchemaVersion_Overwrites(t *testing.T) {
	db := setupTestDB(t)
	if err := putServerConfig(db, models.ServerConfigKeySchemaVersion, "0"); err != nil {
		t.Fatalf("putServerConfig failed: %v", err)
	}
	if err := recordSchemaVersion(db); err != nil {
		t.Fatalf("recordSchemaVersion failed: %v", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		t.Fatalf("GetSchemaVersion failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %q, want %q", version, SchemaVersion)
	}
}
