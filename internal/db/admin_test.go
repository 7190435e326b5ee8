package db

import (
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/nebari-dev/promptlib/internal/config"
	"github.com/nebari-dev/promptlib/internal/models"
	"github.com/nebari-dev/promptlib/internal/rbac"
	"gorm.io/gorm"
)

// setupUserDB builds the database through New so the test runs on the
// same single-connection sqlite pool as the server.
func setupUserDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := New(config.DatabaseConfig{
		Driver:         "sqlite",
		DSN:            filepath.Join(t.TempDir(), "users.db"),
		ConnectRetries: 1,
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatal(err)
	}
	if err := rbac.InitEnforcer(db, slog.Default()); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestCreateUser(t *testing.T) {
	db := setupUserDB(t)

	user, err := CreateUser(db, "alice", "", "s3cret-pass", true)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Email != "alice@promptlib.local" || user.Provider != models.ProviderBasic {
		t.Errorf("expected default email, got %q", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "s3cret-pass" {
		t.Error("expected password to be hashed")
	}
	if isAdmin, _ := rbac.IsAdmin(user.ID); !isAdmin {
		t.Error("expected user to be admin")
	}

	if _, err := CreateUser(db, "alice", "other@example.com", "pw", false); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestCreateDefaultAdmin(t *testing.T) {
	db := setupUserDB(t)

	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	if err := CreateDefaultAdmin(db); err != nil {
		t.Fatal(err)
	}
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no users without credentials, got %d", count)
	}

	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_PASSWORD", "changeme1")
	if err := CreateDefaultAdmin(db); err != nil {
		t.Fatal(err)
	}
	// A second run is a no-op once users exist.
	if err := CreateDefaultAdmin(db); err != nil {
		t.Fatal(err)
	}
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one user, got %d", count)
	}
}
