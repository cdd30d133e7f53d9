// Package models defines the domain entities and request payloads shared by the
// grants API server and its Go client.
//
// Identifiers are UUID strings throughout. User ids come from the external
// auth provider; every other id is generated by PostgreSQL.
package models

import "time"

// ============================================================================
// Domain Models (Database Entities)
// ============================================================================

// Membership roles.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Project statuses.
const (
	StatusDraft        = "draft"
	StatusSubmitted    = "submitted"
	StatusSuccessful   = "successful"
	StatusUnsuccessful = "unsuccessful"
	StatusArchived     = "archived"
)

// ProjectStatuses lists every accepted project status.
var ProjectStatuses = []string{StatusDraft, StatusSubmitted, StatusSuccessful, StatusUnsuccessful, StatusArchived}

// Knowledge file processing states.
const (
	FileStatusPending    = "pending"
	FileStatusProcessing = "processing"
	FileStatusReady      = "ready"
	FileStatusError      = "error"
)

// Organization is the tenant boundary. Users reach it through a Membership.
//
// Database Table: organizations
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"` // Unique, derived from Name
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrganizationWithRole is an organization as seen by one member.
// The embedded fields flatten into the same JSON object as the role.
type OrganizationWithRole struct {
	Organization
	Role string `json:"role"`
}

// Membership links a user to an organization.
//
// Database Table: organization_members (primary key organization_id, user_id)
type Membership struct {
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"` // owner, admin or member
	CreatedAt      time.Time `json:"created_at"`
}

// Profile is the per-user record kept next to the auth provider's account.
// CurrentOrganizationID is the session's "current organization" pointer.
//
// Database Table: profiles
type Profile struct {
	ID                    string    `json:"id"`
	FullName              *string   `json:"full_name"`
	Role                  string    `json:"role"` // admin or member
	CurrentOrganizationID *string   `json:"current_organization_id"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Me is the payload of GET /me.
type Me struct {
	ID                    string  `json:"id"`
	Email                 string  `json:"email"`
	FullName              *string `json:"full_name"`
	Role                  *string `json:"role"`
	CurrentOrganizationID *string `json:"current_organization_id"`
	HasOrganization       bool    `json:"has_organization"`
	NeedsOnboarding       bool    `json:"needs_onboarding"`
}

// Project is a single grant application.
//
// Database Table: projects
// Deadline is a calendar date formatted YYYY-MM-DD.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Funder    *string   `json:"funder"`
	Deadline  *string   `json:"deadline"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectWithCount is a list row: a project plus how many documents it holds.
type ProjectWithCount struct {
	Project
	DocumentsCount int `json:"documents_count"`
}

// ProjectWithDocuments is a project with its documents sorted by SortOrder.
type ProjectWithDocuments struct {
	Project
	Documents []Document `json:"documents"`
}

// Document is one section of a grant application.
//
// Database Table: documents
// Invariant: SortOrder is unique within a project.
type Document struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KnowledgeFile is metadata for a file in an organization's knowledge base.
// It is written by the ingestion pipeline and only read here.
//
// Database Table: knowledge_files
type KnowledgeFile struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Filename       string    `json:"filename"`
	FileSize       int64     `json:"file_size"`
	MimeType       string    `json:"mime_type"`
	Status         string    `json:"status"`
	ErrorMessage   *string   `json:"error_message"`
	CreatedAt      time.Time `json:"created_at"`
}
