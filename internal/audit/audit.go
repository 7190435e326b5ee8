package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/models"
	"gorm.io/gorm"
)

// LogAction records an audit log entry
func LogAction(db *gorm.DB, userID uuid.UUID, action, resource string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	kind, _, _ := strings.Cut(resource, ":")
	log := models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceKind: kind,
		Resource:     resource,
		DetailsJSON:  string(detailsJSON),
		Timestamp:    time.Now(),
	}

	return db.Create(&log).Error
}

// Resource formats an audit resource reference such as "library:3".
func Resource(kind string, id any) string {
	return fmt.Sprintf("%s:%v", kind, id)
}

// Audit actions constants
const (
	ActionCreateUser  = "create_user"
	ActionDeleteUser  = "delete_user"
	ActionMakeAdmin   = "make_admin"
	ActionRevokeAdmin = "revoke_admin"
	ActionLogin       = "login"
	ActionLoginFailed = "login_failed"

	ActionCreateWorkspace = "create_workspace"
	ActionSetActive       = "set_active_template"

	ActionCreateTemplate = "create_template"
	ActionUpdateTemplate = "update_template"
	ActionDeleteTemplate = "delete_template"
	ActionSetDefault     = "set_default_template"

	ActionCreateLibrary  = "create_library"
	ActionUpdateLibrary  = "update_library"
	ActionDeleteLibrary  = "delete_library"
	ActionSetAssignments = "set_assignments"

	ActionImportBundle = "import_bundle"
)

// Resource kinds
const (
	ResourceUser      = "user"
	ResourceWorkspace = "workspace"
	ResourceTemplate  = "template"
	ResourceLibrary   = "library"
	ResourceBundle    = "bundle"
)
