package repositories

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/werkbank-digital/planned/pkg/database"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

const conflictsTable = "absence_conflicts"

var conflictStruct = database.NewStruct(new(models.AbsenceConflict))

// ConflictRepository handles database operations for absence conflicts
type ConflictRepository struct {
	*Repository
}

// NewConflictRepository creates a new conflict repository
func NewConflictRepository(db database.DB, logger ectologger.Logger) *ConflictRepository {
	return &ConflictRepository{
		Repository: NewRepository(db, logger),
	}
}

// ReplaceForAbsence atomically replaces the conflict set recorded for one
// absence. Re-running detection after the absence's range was edited never
// accumulates stale rows.
func (r *ConflictRepository) ReplaceForAbsence(ctx context.Context, absenceID uuid.UUID, conflicts []models.AbsenceConflict) error {
	ctx, span := tracing.StartSpan(ctx, "ConflictRepository.ReplaceForAbsence")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	callerCtx := ctx
	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace absence conflicts")
	}
	defer tx.Rollback(callerCtx)

	db := database.NewDeleteBuilder()
	db.DeleteFrom(conflictsTable).
		Where(db.Equal("tenant_id", tenantID), db.Equal("absence_id", absenceID))

	query, args := db.Build()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"absence_id": absenceID,
		}).Error("failed to clear absence conflicts")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace absence conflicts")
	}

	if len(conflicts) > 0 {
		ib := database.NewInsertBuilder()
		ib.InsertInto(conflictsTable).
			Cols("id", "tenant_id", "absence_id", "allocation_id", "created_at")
		for i := range conflicts {
			conflict := &conflicts[i]
			if conflict.ID == uuid.Nil {
				conflict.ID = uuid.New()
			}
			conflict.TenantID = tenantID
			ib.Values(conflict.ID, conflict.TenantID, conflict.AbsenceID, conflict.AllocationID, sqlbuilder.Raw("NOW()"))
		}

		query, args = ib.Build()
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"absence_id": absenceID,
			}).Error("failed to insert absence conflicts")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace absence conflicts")
		}
	}

	if err = tx.Commit(callerCtx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace absence conflicts")
	}

	return nil
}

// ListForAbsence retrieves the conflicts recorded for one absence
func (r *ConflictRepository) ListForAbsence(ctx context.Context, absenceID uuid.UUID) ([]models.AbsenceConflict, error) {
	ctx, span := tracing.StartSpan(ctx, "ConflictRepository.ListForAbsence")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := conflictStruct.SelectFrom(conflictsTable)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("absence_id", absenceID))

	query, args := sb.Build()
	var conflicts []models.AbsenceConflict
	err = r.DB().SelectContext(ctx, &conflicts, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"absence_id": absenceID,
		}).Error("failed to list absence conflicts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list absence conflicts")
	}

	return conflicts, nil
}
