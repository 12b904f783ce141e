package models

import (
	"time"

	"github.com/google/uuid"
)

// AbsenceConflict links an absence to an allocation scheduled inside its
// date range. Conflicts are advisory; they never block the allocation.
type AbsenceConflict struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TenantID     uuid.UUID `db:"tenant_id" json:"tenant_id"`
	AbsenceID    uuid.UUID `db:"absence_id" json:"absence_id"`
	AllocationID uuid.UUID `db:"allocation_id" json:"allocation_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (AbsenceConflict) TableName() string {
	return "absence_conflicts"
}

// NewAbsenceConflict creates a conflict record for an absence/allocation pair
func NewAbsenceConflict(tenantID, absenceID, allocationID uuid.UUID) AbsenceConflict {
	return AbsenceConflict{
		ID:           uuid.New(),
		TenantID:     tenantID,
		AbsenceID:    absenceID,
		AllocationID: allocationID,
	}
}
