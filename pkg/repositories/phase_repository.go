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

const phasesTable = "project_phases"

var phaseStruct = database.NewStruct(new(models.ProjectPhase))

// PhaseRepository handles database operations for project phases
type PhaseRepository struct {
	*Repository
}

// NewPhaseRepository creates a new phase repository
func NewPhaseRepository(db database.DB, logger ectologger.Logger) *PhaseRepository {
	return &PhaseRepository{
		Repository: NewRepository(db, logger),
	}
}

// GetByID retrieves a phase by ID (tenant-scoped)
func (r *PhaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProjectPhase, error) {
	ctx, span := tracing.StartSpan(ctx, "PhaseRepository.GetByID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := phaseStruct.SelectFrom(phasesTable)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("id", id))

	query, args := sb.Build()
	var phase models.ProjectPhase
	err = r.DB().GetContext(ctx, &phase, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "phase %s does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"phase_id": id,
		}).Error("failed to get phase by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get phase by ID")
	}

	return &phase, nil
}

// FindByAsanaGID looks a phase up by its Asana section link within one
// project. Returns (nil, nil) when no phase carries the GID.
func (r *PhaseRepository) FindByAsanaGID(ctx context.Context, projectID uuid.UUID, asanaGID string) (*models.ProjectPhase, error) {
	ctx, span := tracing.StartSpan(ctx, "PhaseRepository.FindByAsanaGID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := phaseStruct.SelectFrom(phasesTable)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("project_id", projectID), sb.Equal("asana_gid", asanaGID))

	query, args := sb.Build()
	var phase models.ProjectPhase
	err = r.DB().GetContext(ctx, &phase, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"project_id": projectID,
			"asana_gid":  asanaGID,
		}).Error("failed to find phase by asana gid")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find phase by asana gid")
	}

	return &phase, nil
}

// ListByProject retrieves a project's phases ordered by their sort position
func (r *PhaseRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectPhase, error) {
	ctx, span := tracing.StartSpan(ctx, "PhaseRepository.ListByProject")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := phaseStruct.SelectFrom(phasesTable)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("project_id", projectID))
	sb.OrderBy("sort_order")

	query, args := sb.Build()
	var phases []models.ProjectPhase
	err = r.DB().SelectContext(ctx, &phases, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"project_id": projectID,
		}).Error("failed to list phases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list phases")
	}

	return phases, nil
}

// Create creates a new phase
func (r *PhaseRepository) Create(ctx context.Context, phase *models.ProjectPhase) error {
	ctx, span := tracing.StartSpan(ctx, "PhaseRepository.Create")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	phase.TenantID = tenantID

	if phase.ID == uuid.Nil {
		phase.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(phasesTable).
		Cols("id", "tenant_id", "project_id", "name", "bereich", "budget_hours", "planned_hours",
			"actual_hours", "asana_gid", "sort_order", "created_at", "updated_at").
		Values(phase.ID, phase.TenantID, phase.ProjectID, phase.Name, phase.Bereich, phase.BudgetHours,
			phase.PlannedHours, phase.ActualHours, phase.AsanaGID, phase.SortOrder,
			sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()")).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	err = r.DB().QueryRowContext(ctx, query, args...).Scan(&phase.CreatedAt, &phase.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"phase_id": phase.ID,
		}).Error("failed to create phase")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create phase")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"phase_id": phase.ID,
	}).Debugf("Created %s", phasesTable)
	return nil
}

// Update updates an existing phase
func (r *PhaseRepository) Update(ctx context.Context, phase *models.ProjectPhase) error {
	ctx, span := tracing.StartSpan(ctx, "PhaseRepository.Update")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(phasesTable).
		Set(
			ub.Assign("name", phase.Name),
			ub.Assign("bereich", phase.Bereich),
			ub.Assign("budget_hours", phase.BudgetHours),
			ub.Assign("planned_hours", phase.PlannedHours),
			ub.Assign("actual_hours", phase.ActualHours),
			ub.Assign("asana_gid", phase.AsanaGID),
			ub.Assign("sort_order", phase.SortOrder),
			ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
		).
		Where(ub.Equal("tenant_id", tenantID), ub.Equal("id", phase.ID))
	ub.SQL("RETURNING updated_at")

	query, args := ub.Build()
	err = r.DB().QueryRowContext(ctx, query, args...).Scan(&phase.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "phase %s does not exist", phase.ID)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"phase_id": phase.ID,
		}).Error("failed to update phase")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update phase")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"phase_id": phase.ID,
	}).Debugf("Updated %s", phasesTable)
	return nil
}
