package sync

import (
	"context"
	"time"

	"github.com/werkbank-digital/planned/pkg/asana"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/timetac"
)

// AsanaAPI is the remote surface the Asana use cases depend on
type AsanaAPI interface {
	GetProjects(ctx context.Context, workspaceID, token string) ([]asana.RemoteProject, error)
	GetSections(ctx context.Context, projectGID, token string) ([]asana.RemoteSection, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*asana.TokenResponse, error)
	UpdateSection(ctx context.Context, sectionGID, name, token string) error
	UpdateProjectCustomField(ctx context.Context, projectGID, fieldGID string, value float64, token string) error
}

// TimeTacAPI is the remote surface the TimeTac use cases depend on
type TimeTacAPI interface {
	ValidateAPIKey(ctx context.Context, key string) error
	GetAccount(ctx context.Context, key string) (*timetac.Account, error)
	GetAbsences(ctx context.Context, key string, from, to time.Time) ([]timetac.RemoteAbsence, error)
	GetTimeEntries(ctx context.Context, key string, from, to time.Time) ([]timetac.RemoteTimeEntry, error)
}

// ConflictDetector runs absence conflict detection after an absence sync
type ConflictDetector interface {
	DetectForAbsence(ctx context.Context, absence models.Absence) ([]models.AbsenceConflict, error)
}

// EventPublisher announces completed sync runs downstream. Optional on every
// use case; a nil publisher disables events.
type EventPublisher interface {
	PublishSyncCompleted(ctx context.Context, tenantID string, service models.SyncService, operation string, success bool) error
}
