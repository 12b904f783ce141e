package scheduler

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/werkbank-digital/planned/pkg/database"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

// SyncDue describes one tenant whose integration is due for a background
// sync run.
type SyncDue struct {
	TenantID   uuid.UUID  `db:"tenant_id"`
	HasAsana   bool       `db:"has_asana"`
	HasTimeTac bool       `db:"has_timetac"`
	LastRunAt  *time.Time `db:"last_run_at"`
}

// Repository is the scheduler's cross-tenant view of connected integrations.
// It deliberately bypasses the tenant-scoped repositories; the scheduler is
// the one component that looks across all tenants.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates the scheduler repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// ListDueTenants returns tenants with at least one connected integration
// whose most recent sync run started longer than interval ago (or that
// never ran). Tenants longest overdue come first.
func (r *Repository) ListDueTenants(ctx context.Context, interval time.Duration, limit int) ([]SyncDue, error) {
	ctx, span := tracing.StartSpan(ctx, "SchedulerRepository.ListDueTenants")
	defer span.End()

	query := `
		SELECT
			ic.tenant_id,
			(ic.asana_access_token IS NOT NULL) AS has_asana,
			(ic.timetac_api_token IS NOT NULL) AS has_timetac,
			sl.last_run_at
		FROM integration_credentials ic
		LEFT JOIN (
			SELECT tenant_id, MAX(started_at) AS last_run_at
			FROM sync_logs
			GROUP BY tenant_id
		) sl ON sl.tenant_id = ic.tenant_id
		WHERE (ic.asana_access_token IS NOT NULL OR ic.timetac_api_token IS NOT NULL)
		AND (
			sl.last_run_at IS NULL
			OR sl.last_run_at + ($1 * INTERVAL '1 second') < NOW()
		)
		ORDER BY sl.last_run_at ASC NULLS FIRST
		LIMIT $2
	`

	var due []SyncDue
	if err := r.db.SelectContext(ctx, &due, query, int(interval.Seconds()), limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to query due tenants")
		return nil, err
	}

	r.logger.WithContext(ctx).Debugf("Found %d tenants due for sync", len(due))
	return due, nil
}
