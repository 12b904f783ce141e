package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNewAllocation_RequiresExactlyOneAssignee(t *testing.T) {
	tenantID := uuid.New()
	phaseID := uuid.New()
	day := date(2026, 5, 4)

	userID := uuid.New()
	resourceID := uuid.New()

	tests := []struct {
		name       string
		userID     *uuid.UUID
		resourceID *uuid.UUID
		wantErr    error
	}{
		{name: "user only", userID: &userID},
		{name: "resource only", resourceID: &resourceID},
		{name: "both", userID: &userID, resourceID: &resourceID, wantErr: ErrAllocationAssignee},
		{name: "neither", wantErr: ErrAllocationAssignee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAllocation(tenantID, phaseID, day, tt.userID, tt.resourceID, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewAllocation_ResourcesCarryNoHours(t *testing.T) {
	resourceID := uuid.New()
	_, err := NewAllocation(uuid.New(), uuid.New(), date(2026, 5, 4), nil, &resourceID, ptr(8.0))
	assert.ErrorIs(t, err, ErrAllocationHoursOnResource)

	alloc, err := NewAllocation(uuid.New(), uuid.New(), date(2026, 5, 4), nil, &resourceID, nil)
	require.NoError(t, err)
	_, err = alloc.WithPlannedHours(8)
	assert.ErrorIs(t, err, ErrAllocationHoursOnResource)
}

func TestNewAllocation_HourBounds(t *testing.T) {
	userID := uuid.New()

	_, err := NewAllocation(uuid.New(), uuid.New(), date(2026, 5, 4), &userID, nil, ptr(25.0))
	assert.ErrorIs(t, err, ErrInvalidPlannedHours)

	_, err = NewAllocation(uuid.New(), uuid.New(), date(2026, 5, 4), &userID, nil, ptr(-1.0))
	assert.ErrorIs(t, err, ErrInvalidPlannedHours)

	alloc, err := NewAllocation(uuid.New(), uuid.New(), date(2026, 5, 4), &userID, nil, ptr(8.5))
	require.NoError(t, err)
	assert.True(t, alloc.IsUserAllocation())
	assert.Equal(t, 8.5, *alloc.PlannedHours)
}

func TestNewAllocation_TruncatesDate(t *testing.T) {
	userID := uuid.New()
	alloc, err := NewAllocation(uuid.New(), uuid.New(), time.Date(2026, 5, 4, 14, 30, 0, 0, time.UTC), &userID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, date(2026, 5, 4), alloc.Date)
}

func TestNewTimeEntry_Validation(t *testing.T) {
	_, err := NewTimeEntry(uuid.New(), uuid.New(), "", date(2026, 5, 4), 8)
	assert.ErrorIs(t, err, ErrTimeEntryExternalID)

	_, err = NewTimeEntry(uuid.New(), uuid.New(), "tt-1", date(2026, 5, 4), 24.5)
	assert.ErrorIs(t, err, ErrInvalidHours)

	entry, err := NewTimeEntry(uuid.New(), uuid.New(), "tt-1", date(2026, 5, 4), 7.75)
	require.NoError(t, err)
	assert.Equal(t, "tt-1", entry.TimeTacID)
}

func TestProject_UnlinkedClearsLinkageOnly(t *testing.T) {
	p, err := NewProject(uuid.New(), "Halle Nord", ProjectStatusActive)
	require.NoError(t, err)

	linked := p.WithAsanaLink("120055", time.Now().UTC())
	require.True(t, linked.IsLinked())

	unlinked := linked.Unlinked()
	assert.Nil(t, unlinked.AsanaGID)
	assert.Nil(t, unlinked.SyncedAt)
	assert.Equal(t, linked.Name, unlinked.Name)
	assert.Equal(t, linked.Status, unlinked.Status)

	// original copy untouched
	assert.True(t, linked.IsLinked())
}

func TestProjectPhase_WithBudgetHours(t *testing.T) {
	phase, err := NewProjectPhase(uuid.New(), uuid.New(), "Abbund")
	require.NoError(t, err)

	_, err = phase.WithBudgetHours(-4)
	assert.ErrorIs(t, err, ErrNegativeBudgetHours)

	updated, err := phase.WithBudgetHours(120)
	require.NoError(t, err)
	assert.Equal(t, 120.0, *updated.BudgetHours)
	assert.Nil(t, phase.BudgetHours)
}
