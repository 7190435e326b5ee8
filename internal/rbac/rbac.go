package rbac

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelConf string

var enforcer *casbin.Enforcer

// ErrNotInitialized is returned when a check runs before InitEnforcer.
var ErrNotInitialized = errors.New("rbac enforcer not initialized")

const (
	adminObject = "admin"
	adminAction = "admin"
)

// InitEnforcer initializes the Casbin enforcer backed by the given database
func InitEnforcer(db *gorm.DB, logger *slog.Logger) error {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return fmt.Errorf("failed to parse casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if err := e.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	enforcer = e
	logger.Info("RBAC enforcer initialized")
	return nil
}

// IsAdmin checks if user has admin privileges
func IsAdmin(userID uuid.UUID) (bool, error) {
	if enforcer == nil {
		return false, ErrNotInitialized
	}
	return enforcer.Enforce(userID.String(), adminObject, adminAction)
}

// MakeAdmin grants admin privileges to a user. The adapter persists the
// single rule; SavePolicy is never called because it rewrites the whole
// table and needs a second connection the sqlite pool does not have.
func MakeAdmin(userID uuid.UUID) error {
	if enforcer == nil {
		return ErrNotInitialized
	}
	_, err := enforcer.AddPolicy(userID.String(), adminObject, adminAction)
	return err
}

// RevokeAdmin removes admin privileges from a user
func RevokeAdmin(userID uuid.UUID) error {
	if enforcer == nil {
		return ErrNotInitialized
	}
	_, err := enforcer.RemovePolicy(userID.String(), adminObject, adminAction)
	return err
}

// ListAdmins returns the ids of every user holding the admin policy
func ListAdmins() ([]uuid.UUID, error) {
	if enforcer == nil {
		return nil, ErrNotInitialized
	}
	policies, err := enforcer.GetFilteredPolicy(1, adminObject, adminAction)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(policies))
	for _, p := range policies {
		id, err := uuid.Parse(p[0])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
