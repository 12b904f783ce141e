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

const projectsTable = "projects"

var projectStruct = database.NewStruct(new(models.Project))

// ProjectRepository handles database operations for projects
type ProjectRepository struct {
	*Repository
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db database.DB, logger ectologger.Logger) *ProjectRepository {
	return &ProjectRepository{
		Repository: NewRepository(db, logger),
	}
}

// GetByID retrieves a project by ID (tenant-scoped)
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.GetByID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := projectStruct.SelectFrom(projectsTable)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("id", id))

	query, args := sb.Build()
	var project models.Project
	err = r.DB().GetContext(ctx, &project, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "project %s does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"project_id": id,
		}).Error("failed to get project by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get project by ID")
	}

	return &project, nil
}

// FindByAsanaGID looks a project up by its Asana link. Returns (nil, nil)
// when no project carries the GID so sync loops can branch to create.
func (r *ProjectRepository) FindByAsanaGID(ctx context.Context, asanaGID string) (*models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.FindByAsanaGID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := projectStruct.SelectFrom(projectsTable)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("asana_gid", asanaGID))

	query, args := sb.Build()
	var project models.Project
	err = r.DB().GetContext(ctx, &project, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"asana_gid": asanaGID,
		}).Error("failed to find project by asana gid")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find project by asana gid")
	}

	return &project, nil
}

// List retrieves all projects for the current tenant
func (r *ProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.List")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := projectStruct.SelectFrom(projectsTable)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("name")

	query, args := sb.Build()
	var projects []models.Project
	err = r.DB().SelectContext(ctx, &projects, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list projects")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list projects")
	}

	return projects, nil
}

// Create creates a new project
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.Create")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	project.TenantID = tenantID

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(projectsTable).
		Cols("id", "tenant_id", "name", "number", "status", "notes", "asana_gid", "synced_at", "created_at", "updated_at").
		Values(project.ID, project.TenantID, project.Name, project.Number, project.Status, project.Notes,
			project.AsanaGID, project.SyncedAt, sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()")).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	err = r.DB().QueryRowContext(ctx, query, args...).Scan(&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"project_id": project.ID,
		}).Error("failed to create project")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create project")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"project_id": project.ID,
	}).Debugf("Created %s", projectsTable)
	return nil
}

// Update updates an existing project
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.Update")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(projectsTable).
		Set(
			ub.Assign("name", project.Name),
			ub.Assign("number", project.Number),
			ub.Assign("status", project.Status),
			ub.Assign("notes", project.Notes),
			ub.Assign("asana_gid", project.AsanaGID),
			ub.Assign("synced_at", project.SyncedAt),
			ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
		).
		Where(ub.Equal("tenant_id", tenantID), ub.Equal("id", project.ID))
	ub.SQL("RETURNING updated_at")

	query, args := ub.Build()
	err = r.DB().QueryRowContext(ctx, query, args...).Scan(&project.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "project %s does not exist", project.ID)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"project_id": project.ID,
		}).Error("failed to update project")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update project")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"project_id": project.ID,
	}).Debugf("Updated %s", projectsTable)
	return nil
}
