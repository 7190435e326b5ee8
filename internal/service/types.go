package service

import (
	"github.com/nebari-dev/promptlib/internal/models"
	"github.com/nebari-dev/promptlib/internal/promptlib"
)

// WorkspaceRequest holds parameters for creating a workspace.
type WorkspaceRequest struct {
	Slug string
	Name string
}

// TemplateRequest holds parameters for creating or updating a legacy template.
// Nil pointers leave the stored value unchanged on update.
type TemplateRequest struct {
	Name        string
	Description *string
	Content     string
	Enabled     *bool
	IsDefault   *bool
}

// LibraryRequest holds parameters for creating or updating a prompt library.
// On update a nil Questions or WorkspaceIDs slice keeps the stored rows; a
// non-nil one replaces them entirely, in the same transaction as the write.
type LibraryRequest struct {
	Name         string
	Description  *string
	Template     string
	Enabled      *bool
	Questions    []promptlib.QuestionSpec
	WorkspaceIDs []uint
}

// LibraryDetail is the admin view of a library, including its assignments.
type LibraryDetail struct {
	models.PromptLibrary
	WorkspaceIDs []uint   `json:"workspace_ids"`
	Warnings     []string `json:"warnings,omitempty"`
}

func newLibraryDetail(lib models.PromptLibrary, warnings []string) *LibraryDetail {
	return &LibraryDetail{PromptLibrary: lib, WorkspaceIDs: lib.WorkspaceIDs(), Warnings: warnings}
}
