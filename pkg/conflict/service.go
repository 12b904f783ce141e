// Package conflict detects collisions between absences and existing
// allocations. Conflicts are advisory warnings for the planning UI; they
// never block or cancel an allocation.
package conflict

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/werkbank-digital/planned/pkg/metrics"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

// AllocationLister is the slice of the allocation store the detector needs
type AllocationLister interface {
	ListForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Allocation, error)
}

// ConflictWriter persists the detected conflict set
type ConflictWriter interface {
	ReplaceForAbsence(ctx context.Context, absenceID uuid.UUID, conflicts []models.AbsenceConflict) error
}

// Service runs conflict detection for one absence at a time
type Service struct {
	allocations AllocationLister
	conflicts   ConflictWriter
	logger      ectologger.Logger
}

// NewService creates a conflict detection service
func NewService(allocations AllocationLister, conflicts ConflictWriter, logger ectologger.Logger) *Service {
	return &Service{
		allocations: allocations,
		conflicts:   conflicts,
		logger:      logger,
	}
}

// DetectForAbsence finds every allocation of the absence's user scheduled
// inside its inclusive date range and replaces the absence's recorded
// conflict set with the result. Safe to re-run after the absence changed;
// stale conflicts from a prior range are dropped.
func (s *Service) DetectForAbsence(ctx context.Context, absence models.Absence) ([]models.AbsenceConflict, error) {
	ctx, span := tracing.StartSpan(ctx, "ConflictService.DetectForAbsence")
	defer span.End()

	allocations, err := s.allocations.ListForUserBetween(ctx, absence.UserID, absence.StartDate, absence.EndDate)
	if err != nil {
		return nil, err
	}

	conflicts := make([]models.AbsenceConflict, 0, len(allocations))
	for _, allocation := range allocations {
		if !allocation.IsUserAllocation() {
			continue
		}
		if !absence.IncludesDate(allocation.Date) {
			continue
		}
		conflicts = append(conflicts, models.NewAbsenceConflict(absence.TenantID, absence.ID, allocation.ID))
	}

	if err := s.conflicts.ReplaceForAbsence(ctx, absence.ID, conflicts); err != nil {
		return nil, err
	}

	if len(conflicts) > 0 {
		metrics.ConflictsDetectedTotal.WithLabelValues(absence.TenantID.String()).Add(float64(len(conflicts)))
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"absence_id":     absence.ID,
			"conflict_count": len(conflicts),
		}).Info("Detected absence conflicts")
	}

	return conflicts, nil
}
