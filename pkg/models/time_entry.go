package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTimeEntryExternalID is returned when the TimeTac id is missing
	ErrTimeEntryExternalID = errors.New("time entry requires a timetac id")

	// ErrInvalidHours is returned for hours outside [0, 24]
	ErrInvalidHours = errors.New("hours must be between 0 and 24")
)

// TimeEntry is a booked (IST) time record synced from TimeTac. TimeTacID is
// the dedup key; re-syncing the same remote entry upserts the same row.
type TimeEntry struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	TenantID       uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	TimeTacID      string     `db:"timetac_id" json:"timetac_id"`
	ProjectPhaseID *uuid.UUID `db:"project_phase_id" json:"project_phase_id,omitempty"`
	Date           time.Time  `db:"date" json:"date"`
	Hours          float64    `db:"hours" json:"hours"`
	Description    *string    `db:"description" json:"description,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (TimeEntry) TableName() string {
	return "time_entries"
}

// NewTimeEntry creates a validated time entry
func NewTimeEntry(tenantID, userID uuid.UUID, timetacID string, date time.Time, hours float64) (TimeEntry, error) {
	if timetacID == "" {
		return TimeEntry{}, ErrTimeEntryExternalID
	}
	if hours < 0 || hours > 24 {
		return TimeEntry{}, ErrInvalidHours
	}

	return TimeEntry{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    userID,
		TimeTacID: timetacID,
		Date:      DateOnly(date),
		Hours:     hours,
	}, nil
}

// WithProjectPhase returns a copy attributed to the given phase
func (e TimeEntry) WithProjectPhase(phaseID uuid.UUID) TimeEntry {
	e.ProjectPhaseID = &phaseID
	return e
}

// WithDescription returns a copy with the given free-text description
func (e TimeEntry) WithDescription(description string) TimeEntry {
	e.Description = &description
	return e
}

// WithHours returns a copy with the given hours, or an error when outside
// the valid range
func (e TimeEntry) WithHours(hours float64) (TimeEntry, error) {
	if hours < 0 || hours > 24 {
		return TimeEntry{}, ErrInvalidHours
	}
	e.Hours = hours
	return e, nil
}
