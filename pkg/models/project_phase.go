package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Bereich is the work area classification of a phase
type Bereich string

const (
	BereichProduktion Bereich = "produktion"
	BereichMontage    Bereich = "montage"
	BereichExtern     Bereich = "extern"
)

var (
	// ErrPhaseNameRequired is returned when a phase is created without a name
	ErrPhaseNameRequired = errors.New("phase name is required")

	// ErrNegativeBudgetHours is returned for a negative hour budget
	ErrNegativeBudgetHours = errors.New("budget hours must not be negative")
)

// ProjectPhase is one section of a project's breakdown. BudgetHours is the
// SOLL value sourced from an Asana custom field; PlannedHours (PLAN) is
// derived from allocations and ActualHours (IST) from synced time entries.
type ProjectPhase struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TenantID     uuid.UUID `db:"tenant_id" json:"tenant_id"`
	ProjectID    uuid.UUID `db:"project_id" json:"project_id"`
	Name         string    `db:"name" json:"name"`
	Bereich      *Bereich  `db:"bereich" json:"bereich,omitempty"`
	BudgetHours  *float64  `db:"budget_hours" json:"budget_hours,omitempty"`
	PlannedHours float64   `db:"planned_hours" json:"planned_hours"`
	ActualHours  float64   `db:"actual_hours" json:"actual_hours"`
	AsanaGID     *string   `db:"asana_gid" json:"asana_gid,omitempty"`
	SortOrder    int       `db:"sort_order" json:"sort_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (ProjectPhase) TableName() string {
	return "project_phases"
}

// NewProjectPhase creates a validated phase
func NewProjectPhase(tenantID, projectID uuid.UUID, name string) (ProjectPhase, error) {
	if name == "" {
		return ProjectPhase{}, ErrPhaseNameRequired
	}

	return ProjectPhase{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ProjectID: projectID,
		Name:      name,
	}, nil
}

// WithName returns a copy with the given name
func (p ProjectPhase) WithName(name string) ProjectPhase {
	p.Name = name
	return p
}

// WithBereich returns a copy with the given work area
func (p ProjectPhase) WithBereich(b Bereich) ProjectPhase {
	p.Bereich = &b
	return p
}

// WithBudgetHours returns a copy with the given SOLL hours, or an error for
// a negative budget
func (p ProjectPhase) WithBudgetHours(hours float64) (ProjectPhase, error) {
	if hours < 0 {
		return ProjectPhase{}, ErrNegativeBudgetHours
	}
	p.BudgetHours = &hours
	return p, nil
}

// WithSortOrder returns a copy with the given ordinal position
func (p ProjectPhase) WithSortOrder(order int) ProjectPhase {
	p.SortOrder = order
	return p
}

// WithAsanaGID returns a copy linked to the given Asana section
func (p ProjectPhase) WithAsanaGID(gid string) ProjectPhase {
	p.AsanaGID = &gid
	return p
}
