package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewAbsence_RejectsInvertedRange(t *testing.T) {
	_, err := NewAbsence(uuid.New(), uuid.New(), AbsenceTypeVacation, date(2026, 3, 10), date(2026, 3, 9))
	assert.ErrorIs(t, err, ErrAbsenceDatesInverted)
}

func TestNewAbsence_SingleDayRangeIsValid(t *testing.T) {
	a, err := NewAbsence(uuid.New(), uuid.New(), AbsenceTypeSick, date(2026, 3, 10), date(2026, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, a.StartDate, a.EndDate)
}

func TestNewAbsence_RejectsUnknownType(t *testing.T) {
	_, err := NewAbsence(uuid.New(), uuid.New(), AbsenceType("sabbatical"), date(2026, 3, 1), date(2026, 3, 2))
	assert.ErrorIs(t, err, ErrInvalidAbsenceType)
}

func TestAbsence_IncludesDate_BoundsAreInclusive(t *testing.T) {
	a, err := NewAbsence(uuid.New(), uuid.New(), AbsenceTypeVacation, date(2026, 7, 6), date(2026, 7, 10))
	require.NoError(t, err)

	assert.True(t, a.IncludesDate(date(2026, 7, 6)), "start date must be included")
	assert.True(t, a.IncludesDate(date(2026, 7, 10)), "end date must be included")
	assert.True(t, a.IncludesDate(date(2026, 7, 8)))
	assert.False(t, a.IncludesDate(date(2026, 7, 5)))
	assert.False(t, a.IncludesDate(date(2026, 7, 11)))
}

func TestAbsence_IncludesDate_IgnoresTimeOfDay(t *testing.T) {
	a, err := NewAbsence(uuid.New(), uuid.New(), AbsenceTypeVacation, date(2026, 7, 6), date(2026, 7, 6))
	require.NoError(t, err)

	assert.True(t, a.IncludesDate(time.Date(2026, 7, 6, 23, 59, 0, 0, time.UTC)))
}

func TestAbsence_WithDateRange_CopiesInsteadOfMutating(t *testing.T) {
	original, err := NewAbsence(uuid.New(), uuid.New(), AbsenceTypeVacation, date(2026, 7, 6), date(2026, 7, 10))
	require.NoError(t, err)

	moved, err := original.WithDateRange(date(2026, 8, 1), date(2026, 8, 5))
	require.NoError(t, err)

	assert.Equal(t, date(2026, 7, 6), original.StartDate)
	assert.Equal(t, date(2026, 8, 1), moved.StartDate)
	assert.Equal(t, original.ID, moved.ID)

	_, err = original.WithDateRange(date(2026, 8, 5), date(2026, 8, 1))
	assert.ErrorIs(t, err, ErrAbsenceDatesInverted)
}
