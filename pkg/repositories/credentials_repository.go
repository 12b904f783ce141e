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

const credentialsTable = "integration_credentials"

var credentialsStruct = database.NewStruct(new(models.IntegrationCredentials))

// CredentialsRepository handles database operations for integration credentials
type CredentialsRepository struct {
	*Repository
}

// NewCredentialsRepository creates a new credentials repository
func NewCredentialsRepository(db database.DB, logger ectologger.Logger) *CredentialsRepository {
	return &CredentialsRepository{
		Repository: NewRepository(db, logger),
	}
}

// GetByTenant retrieves the credentials row for the current tenant. A tenant
// that never connected any integration gets a 404.
func (r *CredentialsRepository) GetByTenant(ctx context.Context) (*models.IntegrationCredentials, error) {
	ctx, span := tracing.StartSpan(ctx, "CredentialsRepository.GetByTenant")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := credentialsStruct.SelectFrom(credentialsTable)
	sb.Where(sb.Equal("tenant_id", tenantID))

	query, args := sb.Build()
	var credentials models.IntegrationCredentials
	err = r.DB().GetContext(ctx, &credentials, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "no integration credentials configured")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get integration credentials")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get integration credentials")
	}

	return &credentials, nil
}

// Upsert writes the credentials row for the current tenant, inserting on
// first connect and updating afterwards.
func (r *CredentialsRepository) Upsert(ctx context.Context, credentials *models.IntegrationCredentials) error {
	ctx, span := tracing.StartSpan(ctx, "CredentialsRepository.Upsert")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	credentials.TenantID = tenantID

	if credentials.ID == uuid.Nil {
		credentials.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(credentialsTable).
		Cols("id", "tenant_id", "timetac_api_token", "timetac_account_id",
			"asana_access_token", "asana_refresh_token", "asana_token_expires_at", "asana_workspace_id",
			"asana_number_field_id", "asana_soll_produktion_field_id", "asana_soll_montage_field_id",
			"asana_bereich_field_id", "asana_budget_hours_field_id", "timetac_absence_type_map",
			"created_at", "updated_at").
		Values(credentials.ID, credentials.TenantID, credentials.TimeTacAPIToken, credentials.TimeTacAccountID,
			credentials.AsanaAccessToken, credentials.AsanaRefreshToken, credentials.AsanaTokenExpiresAt, credentials.AsanaWorkspaceID,
			credentials.AsanaNumberFieldID, credentials.AsanaSollProduktionFieldID, credentials.AsanaSollMontageFieldID,
			credentials.AsanaBereichFieldID, credentials.AsanaBudgetHoursFieldID, credentials.TimeTacAbsenceTypeMap,
			sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()"))

	ub := ib.OnConflict("tenant_id")
	ub.Set(
		ub.Assign("timetac_api_token", database.Excluded("timetac_api_token")),
		ub.Assign("timetac_account_id", database.Excluded("timetac_account_id")),
		ub.Assign("asana_access_token", database.Excluded("asana_access_token")),
		ub.Assign("asana_refresh_token", database.Excluded("asana_refresh_token")),
		ub.Assign("asana_token_expires_at", database.Excluded("asana_token_expires_at")),
		ub.Assign("asana_workspace_id", database.Excluded("asana_workspace_id")),
		ub.Assign("asana_number_field_id", database.Excluded("asana_number_field_id")),
		ub.Assign("asana_soll_produktion_field_id", database.Excluded("asana_soll_produktion_field_id")),
		ub.Assign("asana_soll_montage_field_id", database.Excluded("asana_soll_montage_field_id")),
		ub.Assign("asana_bereich_field_id", database.Excluded("asana_bereich_field_id")),
		ub.Assign("asana_budget_hours_field_id", database.Excluded("asana_budget_hours_field_id")),
		ub.Assign("timetac_absence_type_map", database.Excluded("timetac_absence_type_map")),
		ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
	)
	ib.SQL("RETURNING id, created_at, updated_at")

	query, args := ib.Build()
	err = r.DB().QueryRowContext(ctx, query, args...).Scan(&credentials.ID, &credentials.CreatedAt, &credentials.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to upsert integration credentials")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert integration credentials")
	}

	r.logger.WithContext(ctx).Debugf("Upserted %s", credentialsTable)
	return nil
}

// UpdateAsanaTokens persists a refreshed Asana token pair for the current
// tenant without touching any other credential fields.
func (r *CredentialsRepository) UpdateAsanaTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "CredentialsRepository.UpdateAsanaTokens")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(credentialsTable).
		Set(
			ub.Assign("asana_access_token", accessToken),
			ub.Assign("asana_refresh_token", refreshToken),
			ub.Assign("asana_token_expires_at", expiresAt),
			ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
		).
		Where(ub.Equal("tenant_id", tenantID))

	query, args := ub.Build()
	result, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update asana tokens")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update asana tokens")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update asana tokens")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update asana tokens")
	}
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "no integration credentials configured")
	}

	r.logger.WithContext(ctx).Debug("Persisted refreshed Asana tokens")
	return nil
}
