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

const timeEntriesTable = "time_entries"

var timeEntryStruct = database.NewStruct(new(models.TimeEntry))

// TimeEntryRepository handles database operations for synced time entries
type TimeEntryRepository struct {
	*Repository
}

// NewTimeEntryRepository creates a new time entry repository
func NewTimeEntryRepository(db database.DB, logger ectologger.Logger) *TimeEntryRepository {
	return &TimeEntryRepository{
		Repository: NewRepository(db, logger),
	}
}

// Upsert reconciles a time entry by its (timetac_id, tenant_id) key. The
// returned flag reports whether a new row was inserted rather than an
// existing one updated, so sync runs can count created vs updated.
func (r *TimeEntryRepository) Upsert(ctx context.Context, entry *models.TimeEntry) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "TimeEntryRepository.Upsert")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return false, err
	}
	entry.TenantID = tenantID

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(timeEntriesTable).
		Cols("id", "tenant_id", "user_id", "timetac_id", "project_phase_id", "date", "hours", "description", "created_at", "updated_at").
		Values(entry.ID, entry.TenantID, entry.UserID, entry.TimeTacID, entry.ProjectPhaseID, entry.Date,
			entry.Hours, entry.Description, sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()"))

	ub := ib.OnConflict("timetac_id", "tenant_id")
	ub.Set(
		ub.Assign("user_id", database.Excluded("user_id")),
		ub.Assign("project_phase_id", database.Excluded("project_phase_id")),
		ub.Assign("date", database.Excluded("date")),
		ub.Assign("hours", database.Excluded("hours")),
		ub.Assign("description", database.Excluded("description")),
		ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
	)
	// xmax = 0 only holds for freshly inserted rows
	ib.SQL("RETURNING id, created_at, updated_at, (xmax = 0) AS inserted")

	query, args := ib.Build()
	var inserted bool
	err = r.DB().QueryRowContext(ctx, query, args...).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt, &inserted)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"timetac_id": entry.TimeTacID,
		}).Error("failed to upsert time entry")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert time entry")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"timetac_id": entry.TimeTacID,
		"inserted":   inserted,
	}).Debugf("Upserted %s", timeEntriesTable)
	return inserted, nil
}

// ListForUserBetween retrieves a user's time entries within the given
// inclusive date range
func (r *TimeEntryRepository) ListForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.TimeEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "TimeEntryRepository.ListForUserBetween")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := timeEntryStruct.SelectFrom(timeEntriesTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("user_id", userID),
		sb.GreaterEqualThan("date", models.DateOnly(from)),
		sb.LessEqualThan("date", models.DateOnly(to)),
	)
	sb.OrderBy("date")

	query, args := sb.Build()
	var entries []models.TimeEntry
	err = r.DB().SelectContext(ctx, &entries, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id": userID,
		}).Error("failed to list time entries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list time entries")
	}

	return entries, nil
}
