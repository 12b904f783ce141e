package conflict_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/werkbank-digital/planned/pkg/conflict"
	"github.com/werkbank-digital/planned/pkg/models"
)

type allocationListerMock struct {
	mock.Mock
}

func (m *allocationListerMock) ListForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Allocation, error) {
	args := m.Called(ctx, userID, from, to)
	if list, ok := args.Get(0).([]models.Allocation); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

type conflictWriterMock struct {
	mock.Mock
}

func (m *conflictWriterMock) ReplaceForAbsence(ctx context.Context, absenceID uuid.UUID, conflicts []models.AbsenceConflict) error {
	args := m.Called(ctx, absenceID, conflicts)
	return args.Error(0)
}

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func userAllocation(tenantID uuid.UUID, userID uuid.UUID, date time.Time) models.Allocation {
	hours := 8.0
	allocation, err := models.NewAllocation(tenantID, uuid.New(), date, &userID, nil, &hours)
	if err != nil {
		panic(err)
	}
	return allocation
}

func TestDetectForAbsence(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()

	absence, err := models.NewAbsence(tenantID, userID, models.AbsenceTypeVacation, day(2026, 3, 2), day(2026, 3, 6))
	require.NoError(t, err)

	t.Run("records one conflict per overlapping allocation", func(t *testing.T) {
		inside := userAllocation(tenantID, userID, day(2026, 3, 3))
		boundary := userAllocation(tenantID, userID, day(2026, 3, 6))

		allocations := &allocationListerMock{}
		allocations.On("ListForUserBetween", mock.Anything, userID, absence.StartDate, absence.EndDate).
			Return([]models.Allocation{inside, boundary}, nil)

		writer := &conflictWriterMock{}
		writer.On("ReplaceForAbsence", mock.Anything, absence.ID, mock.MatchedBy(func(conflicts []models.AbsenceConflict) bool {
			return len(conflicts) == 2 &&
				conflicts[0].AllocationID == inside.ID &&
				conflicts[1].AllocationID == boundary.ID
		})).Return(nil)

		svc := conflict.NewService(allocations, writer, silentLogger())
		conflicts, err := svc.DetectForAbsence(context.Background(), absence)
		require.NoError(t, err)
		assert.Len(t, conflicts, 2)
		for _, c := range conflicts {
			assert.Equal(t, absence.ID, c.AbsenceID)
			assert.Equal(t, tenantID, c.TenantID)
		}
		writer.AssertExpectations(t)
	})

	t.Run("no overlap clears prior conflicts", func(t *testing.T) {
		allocations := &allocationListerMock{}
		allocations.On("ListForUserBetween", mock.Anything, userID, absence.StartDate, absence.EndDate).
			Return([]models.Allocation{}, nil)

		writer := &conflictWriterMock{}
		writer.On("ReplaceForAbsence", mock.Anything, absence.ID, mock.MatchedBy(func(conflicts []models.AbsenceConflict) bool {
			return len(conflicts) == 0
		})).Return(nil)

		svc := conflict.NewService(allocations, writer, silentLogger())
		conflicts, err := svc.DetectForAbsence(context.Background(), absence)
		require.NoError(t, err)
		assert.Empty(t, conflicts)
		writer.AssertExpectations(t)
	})

	t.Run("resource allocations never conflict", func(t *testing.T) {
		resourceID := uuid.New()
		resourceAllocation, err := models.NewAllocation(tenantID, uuid.New(), day(2026, 3, 4), nil, &resourceID, nil)
		require.NoError(t, err)

		allocations := &allocationListerMock{}
		allocations.On("ListForUserBetween", mock.Anything, userID, absence.StartDate, absence.EndDate).
			Return([]models.Allocation{resourceAllocation}, nil)

		writer := &conflictWriterMock{}
		writer.On("ReplaceForAbsence", mock.Anything, absence.ID, mock.MatchedBy(func(conflicts []models.AbsenceConflict) bool {
			return len(conflicts) == 0
		})).Return(nil)

		svc := conflict.NewService(allocations, writer, silentLogger())
		conflicts, err := svc.DetectForAbsence(context.Background(), absence)
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		allocations := &allocationListerMock{}
		allocations.On("ListForUserBetween", mock.Anything, userID, absence.StartDate, absence.EndDate).
			Return(nil, errors.New("db down"))

		writer := &conflictWriterMock{}

		svc := conflict.NewService(allocations, writer, silentLogger())
		_, err := svc.DetectForAbsence(context.Background(), absence)
		assert.Error(t, err)
		writer.AssertNotCalled(t, "ReplaceForAbsence", mock.Anything, mock.Anything, mock.Anything)
	})
}
