package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AbsenceType classifies an absence
type AbsenceType string

const (
	AbsenceTypeVacation AbsenceType = "vacation"
	AbsenceTypeSick     AbsenceType = "sick"
	AbsenceTypeHoliday  AbsenceType = "holiday"
	AbsenceTypeTraining AbsenceType = "training"
	AbsenceTypeOther    AbsenceType = "other"
)

// Valid reports whether the type is one of the known absence types
func (t AbsenceType) Valid() bool {
	switch t {
	case AbsenceTypeVacation, AbsenceTypeSick, AbsenceTypeHoliday, AbsenceTypeTraining, AbsenceTypeOther:
		return true
	}
	return false
}

var (
	// ErrAbsenceDatesInverted is returned when endDate is before startDate
	ErrAbsenceDatesInverted = errors.New("absence end date must not be before start date")

	// ErrInvalidAbsenceType is returned for an unknown absence type
	ErrInvalidAbsenceType = errors.New("invalid absence type")
)

// Absence is a user's absence over an inclusive date range. Absences never
// block scheduling; overlaps with allocations are only recorded as warnings.
type Absence struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	TenantID  uuid.UUID   `db:"tenant_id" json:"tenant_id"`
	UserID    uuid.UUID   `db:"user_id" json:"user_id"`
	Type      AbsenceType `db:"type" json:"type"`
	StartDate time.Time   `db:"start_date" json:"start_date"`
	EndDate   time.Time   `db:"end_date" json:"end_date"`
	Note      *string     `db:"note" json:"note,omitempty"`
	TimeTacID *string     `db:"timetac_id" json:"timetac_id,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Absence) TableName() string {
	return "absences"
}

// NewAbsence creates a validated absence. Dates are truncated to days.
func NewAbsence(tenantID, userID uuid.UUID, typ AbsenceType, startDate, endDate time.Time) (Absence, error) {
	if !typ.Valid() {
		return Absence{}, ErrInvalidAbsenceType
	}

	startDate = DateOnly(startDate)
	endDate = DateOnly(endDate)
	if endDate.Before(startDate) {
		return Absence{}, ErrAbsenceDatesInverted
	}

	return Absence{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    userID,
		Type:      typ,
		StartDate: startDate,
		EndDate:   endDate,
	}, nil
}

// WithDateRange returns a copy with the given range, or an error when the
// range is inverted
func (a Absence) WithDateRange(startDate, endDate time.Time) (Absence, error) {
	startDate = DateOnly(startDate)
	endDate = DateOnly(endDate)
	if endDate.Before(startDate) {
		return Absence{}, ErrAbsenceDatesInverted
	}
	a.StartDate = startDate
	a.EndDate = endDate
	return a, nil
}

// WithType returns a copy with the given type, or an error for an unknown type
func (a Absence) WithType(typ AbsenceType) (Absence, error) {
	if !typ.Valid() {
		return Absence{}, ErrInvalidAbsenceType
	}
	a.Type = typ
	return a, nil
}

// WithTimeTacID returns a copy carrying the external TimeTac id
func (a Absence) WithTimeTacID(id string) Absence {
	a.TimeTacID = &id
	return a
}

// IncludesDate reports whether the given day falls inside the absence range.
// Both boundary dates are inclusive.
func (a Absence) IncludesDate(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(a.StartDate) && !d.After(a.EndDate)
}

// DateOnly truncates a timestamp to its UTC calendar day
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
