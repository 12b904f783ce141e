package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/werkbank-digital/planned/pkg/database"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

const syncLogsTable = "sync_logs"

var syncLogStruct = database.NewStruct(new(models.SyncLog))

// SyncLogRepository handles database operations for sync run records
type SyncLogRepository struct {
	*Repository
}

// NewSyncLogRepository creates a new sync log repository
func NewSyncLogRepository(db database.DB, logger ectologger.Logger) *SyncLogRepository {
	return &SyncLogRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create records the start of a sync run
func (r *SyncLogRepository) Create(ctx context.Context, log *models.SyncLog) error {
	ctx, span := tracing.StartSpan(ctx, "SyncLogRepository.Create")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	log.TenantID = tenantID

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(syncLogsTable).
		Cols("id", "tenant_id", "service", "operation", "status", "message", "started_at").
		Values(log.ID, log.TenantID, log.Service, log.Operation, log.Status, log.Message, log.StartedAt)

	query, args := ib.Build()
	_, err = r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"sync_log_id": log.ID,
		}).Error("failed to create sync log")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create sync log")
	}

	return nil
}

// MarkCompleted writes the terminal state of a sync run. Each run calls this
// exactly once, on its success or failure branch.
func (r *SyncLogRepository) MarkCompleted(ctx context.Context, id uuid.UUID, status models.SyncStatus, message string) error {
	ctx, span := tracing.StartSpan(ctx, "SyncLogRepository.MarkCompleted")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(syncLogsTable).
		Set(
			ub.Assign("status", status),
			ub.Assign("message", message),
			ub.Assign("completed_at", sqlbuilder.Raw("NOW()")),
		).
		Where(ub.Equal("tenant_id", tenantID), ub.Equal("id", id))

	query, args := ub.Build()
	result, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"sync_log_id": id,
		}).Error("failed to complete sync log")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to complete sync log")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to complete sync log")
	}
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "sync log %s does not exist", id)
	}

	return nil
}

// ListRecent retrieves the most recent sync runs for the current tenant
func (r *SyncLogRepository) ListRecent(ctx context.Context, limit int) ([]models.SyncLog, error) {
	ctx, span := tracing.StartSpan(ctx, "SyncLogRepository.ListRecent")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	sb := syncLogStruct.SelectFrom(syncLogsTable)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("started_at").Desc()
	sb.Limit(limit)

	query, args := sb.Build()
	var logs []models.SyncLog
	err = r.DB().SelectContext(ctx, &logs, query, args...)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list sync logs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list sync logs")
	}

	return logs, nil
}
