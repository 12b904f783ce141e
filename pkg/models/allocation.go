package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAllocationAssignee is returned unless exactly one of user or
	// resource is assigned
	ErrAllocationAssignee = errors.New("allocation requires exactly one of user or resource")

	// ErrAllocationHoursOnResource is returned when planned hours are set on
	// a resource allocation
	ErrAllocationHoursOnResource = errors.New("planned hours are only valid for user allocations")

	// ErrInvalidPlannedHours is returned for planned hours outside [0, 24]
	ErrInvalidPlannedHours = errors.New("planned hours must be between 0 and 24")
)

// Allocation assigns exactly one of a user or an equipment resource to a
// project phase on one calendar day. Only user allocations carry hours.
type Allocation struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	TenantID       uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	ProjectPhaseID uuid.UUID  `db:"project_phase_id" json:"project_phase_id"`
	UserID         *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	ResourceID     *uuid.UUID `db:"resource_id" json:"resource_id,omitempty"`
	Date           time.Time  `db:"date" json:"date"`
	PlannedHours   *float64   `db:"planned_hours" json:"planned_hours,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Allocation) TableName() string {
	return "allocations"
}

// NewAllocation creates a validated allocation. Exactly one of userID and
// resourceID must be set.
func NewAllocation(tenantID, phaseID uuid.UUID, date time.Time, userID, resourceID *uuid.UUID, plannedHours *float64) (Allocation, error) {
	if (userID == nil) == (resourceID == nil) {
		return Allocation{}, ErrAllocationAssignee
	}
	if resourceID != nil && plannedHours != nil {
		return Allocation{}, ErrAllocationHoursOnResource
	}
	if plannedHours != nil && (*plannedHours < 0 || *plannedHours > 24) {
		return Allocation{}, ErrInvalidPlannedHours
	}

	return Allocation{
		ID:             uuid.New(),
		TenantID:       tenantID,
		ProjectPhaseID: phaseID,
		UserID:         userID,
		ResourceID:     resourceID,
		Date:           DateOnly(date),
		PlannedHours:   plannedHours,
	}, nil
}

// IsUserAllocation reports whether the allocation assigns a user
func (a Allocation) IsUserAllocation() bool {
	return a.UserID != nil
}

// WithPlannedHours returns a copy with the given hours. Only valid for user
// allocations.
func (a Allocation) WithPlannedHours(hours float64) (Allocation, error) {
	if a.UserID == nil {
		return Allocation{}, ErrAllocationHoursOnResource
	}
	if hours < 0 || hours > 24 {
		return Allocation{}, ErrInvalidPlannedHours
	}
	a.PlannedHours = &hours
	return a, nil
}

// WithDate returns a copy moved to the given day
func (a Allocation) WithDate(date time.Time) Allocation {
	a.Date = DateOnly(date)
	return a
}
