package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/werkbank-digital/planned/pkg/context"
	"github.com/werkbank-digital/planned/pkg/crypto"
	"github.com/werkbank-digital/planned/pkg/metrics"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/repositories"
	"github.com/werkbank-digital/planned/pkg/timetac"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

const (
	operationSyncTimeEntries = "sync_time_entries"

	defaultTimeEntryLookback = 7 * 24 * time.Hour
)

// SyncTimeTacTimeEntries pulls booked time entries from TimeTac and upserts
// them by external id. The mapping store resolving remote project ids to
// local phases is optional; without it every entry lands unattributed.
type SyncTimeTacTimeEntries struct {
	credentials repositories.CredentialsStore
	users       repositories.UserStore
	timeEntries repositories.TimeEntryStore
	syncLogs    repositories.SyncLogStore
	mappings    repositories.MappingStore // optional
	api         TimeTacAPI
	cipher      crypto.Cipher
	events      EventPublisher
	logger      ectologger.Logger
}

// NewSyncTimeTacTimeEntries creates the time entry sync use case. mappings
// and events may be nil.
func NewSyncTimeTacTimeEntries(
	credentials repositories.CredentialsStore,
	users repositories.UserStore,
	timeEntries repositories.TimeEntryStore,
	syncLogs repositories.SyncLogStore,
	mappings repositories.MappingStore,
	api TimeTacAPI,
	cipher crypto.Cipher,
	events EventPublisher,
	logger ectologger.Logger,
) *SyncTimeTacTimeEntries {
	return &SyncTimeTacTimeEntries{
		credentials: credentials,
		users:       users,
		timeEntries: timeEntries,
		syncLogs:    syncLogs,
		mappings:    mappings,
		api:         api,
		cipher:      cipher,
		events:      events,
		logger:      logger,
	}
}

// Execute runs one time entry sync. A nil dateRange defaults to the past 7
// days. Never returns an error.
func (u *SyncTimeTacTimeEntries) Execute(ctx context.Context, tenantID uuid.UUID, dateRange *DateRange) *TimeEntrySyncResult {
	ctx, span := tracing.StartSpan(ctx, "SyncTimeTacTimeEntries.Execute")
	defer span.End()

	ctx = appctx.SetTenantID(ctx, tenantID.String())
	result := &TimeEntrySyncResult{}
	start := time.Now()

	log := models.NewSyncLog(tenantID, models.SyncServiceTimeTac, operationSyncTimeEntries)
	if err := u.syncLogs.Create(ctx, &log); err != nil {
		u.logger.WithContext(ctx).WithError(err).Error("Failed to open sync log")
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	ctx = appctx.SetSyncRunID(ctx, log.ID.String())

	err := u.run(ctx, dateRange, result)
	u.finish(ctx, log.ID, tenantID, result, err, start)
	return result
}

func (u *SyncTimeTacTimeEntries) run(ctx context.Context, dateRange *DateRange, result *TimeEntrySyncResult) error {
	credentials, err := u.credentials.GetByTenant(ctx)
	if err != nil {
		if credentialsMissing(err) {
			return ErrTimeTacNotConnected
		}
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if !credentials.HasTimeTac() {
		return ErrTimeTacNotConnected
	}

	apiKey, err := u.cipher.Decrypt(*credentials.TimeTacAPIToken)
	if err != nil {
		return fmt.Errorf("failed to decrypt api key: %w", err)
	}

	users, err := u.users.ListWithTimeTacID(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	userByTimeTacID := make(map[string]uuid.UUID, len(users))
	for _, user := range users {
		if user.TimeTacID != nil && *user.TimeTacID != "" {
			userByTimeTacID[*user.TimeTacID] = user.ID
		}
	}
	if len(userByTimeTacID) == 0 {
		result.Errors = append(result.Errors, NoMappedUsersMessage)
		return nil
	}

	from, to := resolveRange(dateRange, defaultTimeEntryLookback, true)

	remoteEntries, err := u.api.GetTimeEntries(ctx, apiKey, from, to)
	if err != nil {
		return fmt.Errorf("failed to fetch timetac time entries: %w", err)
	}

	for _, remote := range remoteEntries {
		externalID := timetac.ExternalID(remote.ID)

		userID, ok := userByTimeTacID[timetac.ExternalID(remote.UserID)]
		if !ok {
			result.Skipped++
			metrics.SyncItemsTotal.WithLabelValues(string(models.SyncServiceTimeTac), operationSyncTimeEntries, "skipped").Inc()
			continue
		}

		created, err := u.syncEntry(ctx, remote, externalID, userID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("TimeEntry %s: %s", externalID, err.Error()))
			metrics.SyncItemsTotal.WithLabelValues(string(models.SyncServiceTimeTac), operationSyncTimeEntries, "error").Inc()
			continue
		}
		if created {
			result.Created++
			metrics.SyncItemsTotal.WithLabelValues(string(models.SyncServiceTimeTac), operationSyncTimeEntries, "created").Inc()
		} else {
			result.Updated++
			metrics.SyncItemsTotal.WithLabelValues(string(models.SyncServiceTimeTac), operationSyncTimeEntries, "updated").Inc()
		}
	}

	return nil
}

func (u *SyncTimeTacTimeEntries) syncEntry(ctx context.Context, remote timetac.RemoteTimeEntry, externalID string, userID uuid.UUID) (bool, error) {
	date, err := timetac.ParseDate(remote.Date)
	if err != nil {
		return false, err
	}

	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return false, err
	}

	entry, err := models.NewTimeEntry(tenantID, userID, externalID, date, remote.Hours)
	if err != nil {
		return false, err
	}
	if remote.Description != "" {
		entry = entry.WithDescription(remote.Description)
	}

	if phaseID := u.resolvePhase(ctx, remote.ProjectID); phaseID != nil {
		entry = entry.WithProjectPhase(*phaseID)
	}

	return u.timeEntries.Upsert(ctx, &entry)
}

// resolvePhase maps a remote project id to a local phase. Degrades to no
// attribution when no mapping store is wired or no mapping exists.
func (u *SyncTimeTacTimeEntries) resolvePhase(ctx context.Context, remoteProjectID *int64) *uuid.UUID {
	if u.mappings == nil || remoteProjectID == nil {
		return nil
	}

	mapping, err := u.mappings.Find(ctx, models.SyncServiceTimeTac, models.MappingEntityProjectPhase, timetac.ExternalID(*remoteProjectID))
	if err != nil || mapping == nil {
		return nil
	}
	return &mapping.InternalID
}

func (u *SyncTimeTacTimeEntries) finish(ctx context.Context, logID, tenantID uuid.UUID, result *TimeEntrySyncResult, runErr error, start time.Time) {
	status := models.SyncStatusSuccess
	var message string

	if runErr != nil {
		result.Success = false
		result.Errors = append(result.Errors, runErr.Error())
		status = models.SyncStatusFailed
		message = runErr.Error()
	} else {
		result.Success = true
		message = fmt.Sprintf("created=%d updated=%d skipped=%d", result.Created, result.Updated, result.Skipped)
		if len(result.Errors) > 0 {
			message += fmt.Sprintf(" errors=[%s]", strings.Join(result.Errors, "; "))
		}
	}

	if err := u.syncLogs.MarkCompleted(ctx, logID, status, message); err != nil {
		u.logger.WithContext(ctx).WithError(err).Error("Failed to close sync log")
	}

	metrics.SyncRunsTotal.WithLabelValues(tenantID.String(), string(models.SyncServiceTimeTac), operationSyncTimeEntries, string(status)).Inc()
	metrics.SyncRunDuration.WithLabelValues(tenantID.String(), string(models.SyncServiceTimeTac), operationSyncTimeEntries).Observe(time.Since(start).Seconds())

	if u.events != nil {
		if err := u.events.PublishSyncCompleted(ctx, tenantID.String(), models.SyncServiceTimeTac, operationSyncTimeEntries, result.Success); err != nil {
			u.logger.WithContext(ctx).WithError(err).Warn("Failed to publish sync event")
		}
	}

	u.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"status":    status,
	}).Infof("TimeTac time entry sync finished: %s", message)
}
