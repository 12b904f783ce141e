package repositories

import (
	"context"
	"database/sql"
	"errors"
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

const absencesTable = "absences"

var absenceStruct = database.NewStruct(new(models.Absence))

// AbsenceRepository handles database operations for absences
type AbsenceRepository struct {
	*Repository
}

// NewAbsenceRepository creates a new absence repository
func NewAbsenceRepository(db database.DB, logger ectologger.Logger) *AbsenceRepository {
	return &AbsenceRepository{
		Repository: NewRepository(db, logger),
	}
}

// FindByTimeTacID looks an absence up by its external TimeTac id. Returns
// (nil, nil) when the absence has not been synced before.
func (r *AbsenceRepository) FindByTimeTacID(ctx context.Context, timetacID string) (*models.Absence, error) {
	ctx, span := tracing.StartSpan(ctx, "AbsenceRepository.FindByTimeTacID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := absenceStruct.SelectFrom(absencesTable)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("timetac_id", timetacID))

	query, args := sb.Build()
	var absence models.Absence
	err = r.DB().GetContext(ctx, &absence, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"timetac_id": timetacID,
		}).Error("failed to find absence by timetac id")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find absence by timetac id")
	}

	return &absence, nil
}

// ListForUserBetween retrieves a user's absences overlapping the given
// inclusive date range
func (r *AbsenceRepository) ListForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Absence, error) {
	ctx, span := tracing.StartSpan(ctx, "AbsenceRepository.ListForUserBetween")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := absenceStruct.SelectFrom(absencesTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("user_id", userID),
		sb.LessEqualThan("start_date", models.DateOnly(to)),
		sb.GreaterEqualThan("end_date", models.DateOnly(from)),
	)
	sb.OrderBy("start_date")

	query, args := sb.Build()
	var absences []models.Absence
	err = r.DB().SelectContext(ctx, &absences, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id": userID,
		}).Error("failed to list absences")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list absences")
	}

	return absences, nil
}

// Create creates a new absence
func (r *AbsenceRepository) Create(ctx context.Context, absence *models.Absence) error {
	ctx, span := tracing.StartSpan(ctx, "AbsenceRepository.Create")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	absence.TenantID = tenantID

	if absence.ID == uuid.Nil {
		absence.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(absencesTable).
		Cols("id", "tenant_id", "user_id", "type", "start_date", "end_date", "note", "timetac_id", "created_at", "updated_at").
		Values(absence.ID, absence.TenantID, absence.UserID, absence.Type, absence.StartDate, absence.EndDate,
			absence.Note, absence.TimeTacID, sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()")).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	err = r.DB().QueryRowContext(ctx, query, args...).Scan(&absence.CreatedAt, &absence.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"absence_id": absence.ID,
		}).Error("failed to create absence")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create absence")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"absence_id": absence.ID,
	}).Debugf("Created %s", absencesTable)
	return nil
}

// Update updates an existing absence
func (r *AbsenceRepository) Update(ctx context.Context, absence *models.Absence) error {
	ctx, span := tracing.StartSpan(ctx, "AbsenceRepository.Update")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(absencesTable).
		Set(
			ub.Assign("type", absence.Type),
			ub.Assign("start_date", absence.StartDate),
			ub.Assign("end_date", absence.EndDate),
			ub.Assign("note", absence.Note),
			ub.Assign("timetac_id", absence.TimeTacID),
			ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
		).
		Where(ub.Equal("tenant_id", tenantID), ub.Equal("id", absence.ID))
	ub.SQL("RETURNING updated_at")

	query, args := ub.Build()
	err = r.DB().QueryRowContext(ctx, query, args...).Scan(&absence.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "absence %s does not exist", absence.ID)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"absence_id": absence.ID,
		}).Error("failed to update absence")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update absence")
	}

	return nil
}
