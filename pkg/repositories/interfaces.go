package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/werkbank-digital/planned/pkg/models"
)

// CredentialsStore persists per-tenant integration credentials
type CredentialsStore interface {
	GetByTenant(ctx context.Context) (*models.IntegrationCredentials, error)
	Upsert(ctx context.Context, credentials *models.IntegrationCredentials) error
	UpdateAsanaTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error
}

// ProjectStore persists projects
type ProjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	FindByAsanaGID(ctx context.Context, asanaGID string) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
}

// PhaseStore persists project phases
type PhaseStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProjectPhase, error)
	FindByAsanaGID(ctx context.Context, projectID uuid.UUID, asanaGID string) (*models.ProjectPhase, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectPhase, error)
	Create(ctx context.Context, phase *models.ProjectPhase) error
	Update(ctx context.Context, phase *models.ProjectPhase) error
}

// AbsenceStore persists absences
type AbsenceStore interface {
	FindByTimeTacID(ctx context.Context, timetacID string) (*models.Absence, error)
	ListForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Absence, error)
	Create(ctx context.Context, absence *models.Absence) error
	Update(ctx context.Context, absence *models.Absence) error
}

// AllocationStore reads allocations for conflict detection and planning views
type AllocationStore interface {
	ListForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Allocation, error)
	Create(ctx context.Context, allocation *models.Allocation) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TimeEntryStore persists synced time entries. Upsert reconciles by
// (timetac_id, tenant_id) so re-running a sync is idempotent.
type TimeEntryStore interface {
	Upsert(ctx context.Context, entry *models.TimeEntry) (created bool, err error)
}

// SyncLogStore persists sync run records
type SyncLogStore interface {
	Create(ctx context.Context, log *models.SyncLog) error
	MarkCompleted(ctx context.Context, id uuid.UUID, status models.SyncStatus, message string) error
	ListRecent(ctx context.Context, limit int) ([]models.SyncLog, error)
}

// MappingStore resolves external ids to local entities
type MappingStore interface {
	Find(ctx context.Context, service models.SyncService, entityType models.MappingEntityType, externalID string) (*models.IntegrationMapping, error)
	Upsert(ctx context.Context, mapping *models.IntegrationMapping) error
}

// ConflictStore persists absence conflicts
type ConflictStore interface {
	ReplaceForAbsence(ctx context.Context, absenceID uuid.UUID, conflicts []models.AbsenceConflict) error
	ListForAbsence(ctx context.Context, absenceID uuid.UUID) ([]models.AbsenceConflict, error)
}

// UserStore reads users for sync mapping
type UserStore interface {
	ListWithTimeTacID(ctx context.Context) ([]models.User, error)
}
