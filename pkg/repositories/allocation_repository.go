package repositories

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/werkbank-digital/planned/pkg/database"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

const allocationsTable = "allocations"

var allocationStruct = database.NewStruct(new(models.Allocation))

// AllocationRepository handles database operations for allocations
type AllocationRepository struct {
	*Repository
}

// NewAllocationRepository creates a new allocation repository
func NewAllocationRepository(db database.DB, logger ectologger.Logger) *AllocationRepository {
	return &AllocationRepository{
		Repository: NewRepository(db, logger),
	}
}

// ListForUserBetween retrieves a user's allocations whose date falls inside
// the given inclusive range. Used by the conflict detection pass.
func (r *AllocationRepository) ListForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Allocation, error) {
	ctx, span := tracing.StartSpan(ctx, "AllocationRepository.ListForUserBetween")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := allocationStruct.SelectFrom(allocationsTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("user_id", userID),
		sb.GreaterEqualThan("date", models.DateOnly(from)),
		sb.LessEqualThan("date", models.DateOnly(to)),
	)
	sb.OrderBy("date")

	query, args := sb.Build()
	var allocations []models.Allocation
	err = r.DB().SelectContext(ctx, &allocations, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id": userID,
		}).Error("failed to list allocations")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list allocations")
	}

	return allocations, nil
}

// Create creates a new allocation
func (r *AllocationRepository) Create(ctx context.Context, allocation *models.Allocation) error {
	ctx, span := tracing.StartSpan(ctx, "AllocationRepository.Create")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	allocation.TenantID = tenantID

	if allocation.ID == uuid.Nil {
		allocation.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(allocationsTable).
		Cols("id", "tenant_id", "project_phase_id", "user_id", "resource_id", "date", "planned_hours", "created_at", "updated_at").
		Values(allocation.ID, allocation.TenantID, allocation.ProjectPhaseID, allocation.UserID, allocation.ResourceID,
			allocation.Date, allocation.PlannedHours, sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()")).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	err = r.DB().QueryRowContext(ctx, query, args...).Scan(&allocation.CreatedAt, &allocation.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"allocation_id": allocation.ID,
		}).Error("failed to create allocation")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create allocation")
	}

	return nil
}

// Delete deletes an allocation by ID
func (r *AllocationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "AllocationRepository.Delete")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	db := database.NewDeleteBuilder()
	db.DeleteFrom(allocationsTable).
		Where(db.Equal("tenant_id", tenantID), db.Equal("id", id))

	query, args := db.Build()
	result, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"allocation_id": id,
		}).Error("failed to delete allocation")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete allocation")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete allocation")
	}
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "allocation %s does not exist", id)
	}

	return nil
}
