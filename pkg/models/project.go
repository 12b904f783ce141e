package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusPaused    ProjectStatus = "paused"
	ProjectStatusCompleted ProjectStatus = "completed"
)

// Valid reports whether the status is one of the known states
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusPaused, ProjectStatusCompleted:
		return true
	}
	return false
}

var (
	// ErrProjectNameRequired is returned when a project is created without a name
	ErrProjectNameRequired = errors.New("project name is required")

	// ErrInvalidProjectStatus is returned for an unknown project status
	ErrInvalidProjectStatus = errors.New("invalid project status")
)

// Project represents a construction project, optionally linked to an Asana
// project via AsanaGID. Linked projects are reconciled by the Asana sync.
type Project struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	TenantID  uuid.UUID     `db:"tenant_id" json:"tenant_id"`
	Name      string        `db:"name" json:"name"`
	Number    *string       `db:"number" json:"number,omitempty"`
	Status    ProjectStatus `db:"status" json:"status"`
	Notes     *string       `db:"notes" json:"notes,omitempty"`
	AsanaGID  *string       `db:"asana_gid" json:"asana_gid,omitempty"`
	SyncedAt  *time.Time    `db:"synced_at" json:"synced_at,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Project) TableName() string {
	return "projects"
}

// NewProject creates a validated project
func NewProject(tenantID uuid.UUID, name string, status ProjectStatus) (Project, error) {
	if name == "" {
		return Project{}, ErrProjectNameRequired
	}
	if status == "" {
		status = ProjectStatusPlanning
	}
	if !status.Valid() {
		return Project{}, ErrInvalidProjectStatus
	}

	return Project{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     name,
		Status:   status,
	}, nil
}

// WithStatus returns a copy with the given status
func (p Project) WithStatus(status ProjectStatus) Project {
	p.Status = status
	return p
}

// WithAsanaLink returns a copy linked to the given Asana project GID with a
// fresh synced timestamp
func (p Project) WithAsanaLink(gid string, syncedAt time.Time) Project {
	p.AsanaGID = &gid
	p.SyncedAt = &syncedAt
	return p
}

// Unlinked returns a copy with the Asana linkage cleared. All other fields,
// phases and allocations are untouched.
func (p Project) Unlinked() Project {
	p.AsanaGID = nil
	p.SyncedAt = nil
	return p
}

// IsLinked reports whether the project is linked to an Asana project
func (p Project) IsLinked() bool {
	return p.AsanaGID != nil && *p.AsanaGID != ""
}
