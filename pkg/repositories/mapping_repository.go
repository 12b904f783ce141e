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

const mappingsTable = "integration_mappings"

var mappingStruct = database.NewStruct(new(models.IntegrationMapping))

// MappingRepository handles database operations for external id mappings
type MappingRepository struct {
	*Repository
}

// NewMappingRepository creates a new mapping repository
func NewMappingRepository(db database.DB, logger ectologger.Logger) *MappingRepository {
	return &MappingRepository{
		Repository: NewRepository(db, logger),
	}
}

// Find resolves an external id to its local mapping. Returns (nil, nil) when
// no mapping exists; callers degrade to unmapped behaviour.
func (r *MappingRepository) Find(ctx context.Context, service models.SyncService, entityType models.MappingEntityType, externalID string) (*models.IntegrationMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "MappingRepository.Find")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := mappingStruct.SelectFrom(mappingsTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("service", service),
		sb.Equal("entity_type", entityType),
		sb.Equal("external_id", externalID),
	)

	query, args := sb.Build()
	var mapping models.IntegrationMapping
	err = r.DB().GetContext(ctx, &mapping, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"service":     service,
			"entity_type": entityType,
			"external_id": externalID,
		}).Error("failed to find integration mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find integration mapping")
	}

	return &mapping, nil
}

// Upsert writes a mapping, replacing the internal id if the external key is
// already mapped
func (r *MappingRepository) Upsert(ctx context.Context, mapping *models.IntegrationMapping) error {
	ctx, span := tracing.StartSpan(ctx, "MappingRepository.Upsert")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	mapping.TenantID = tenantID

	if mapping.ID == uuid.Nil {
		mapping.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(mappingsTable).
		Cols("id", "tenant_id", "service", "entity_type", "external_id", "internal_id", "created_at").
		Values(mapping.ID, mapping.TenantID, mapping.Service, mapping.EntityType, mapping.ExternalID,
			mapping.InternalID, sqlbuilder.Raw("NOW()"))

	ub := ib.OnConflict("tenant_id", "service", "entity_type", "external_id")
	ub.Set(
		ub.Assign("internal_id", database.Excluded("internal_id")),
	)

	query, args := ib.Build()
	_, err = r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"service":     mapping.Service,
			"external_id": mapping.ExternalID,
		}).Error("failed to upsert integration mapping")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert integration mapping")
	}

	return nil
}
