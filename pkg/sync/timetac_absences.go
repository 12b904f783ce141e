package sync

import (
	"context"
	"errors"
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
	operationSyncAbsences = "sync_absences"

	// NoMappedUsersMessage is the informational entry recorded when a tenant
	// has no users linked to TimeTac. The run still counts as a success.
	NoMappedUsersMessage = "no users with TimeTac mapping found"

	defaultAbsenceLookahead = 90 * 24 * time.Hour
)

// ErrTimeTacNotConnected is returned when the tenant has no TimeTac API token
var ErrTimeTacNotConnected = errors.New("timetac is not connected")

// DateRange bounds a sync fetch, both days inclusive
type DateRange struct {
	From time.Time
	To   time.Time
}

// SyncTimeTacAbsences pulls absences from TimeTac, reconciles them into
// local records by their external id, and runs conflict detection for every
// absence touched in the run.
type SyncTimeTacAbsences struct {
	credentials repositories.CredentialsStore
	users       repositories.UserStore
	absences    repositories.AbsenceStore
	syncLogs    repositories.SyncLogStore
	api         TimeTacAPI
	cipher      crypto.Cipher
	conflicts   ConflictDetector
	events      EventPublisher
	logger      ectologger.Logger
}

// NewSyncTimeTacAbsences creates the absence sync use case. events may be nil.
func NewSyncTimeTacAbsences(
	credentials repositories.CredentialsStore,
	users repositories.UserStore,
	absences repositories.AbsenceStore,
	syncLogs repositories.SyncLogStore,
	api TimeTacAPI,
	cipher crypto.Cipher,
	conflicts ConflictDetector,
	events EventPublisher,
	logger ectologger.Logger,
) *SyncTimeTacAbsences {
	return &SyncTimeTacAbsences{
		credentials: credentials,
		users:       users,
		absences:    absences,
		syncLogs:    syncLogs,
		api:         api,
		cipher:      cipher,
		conflicts:   conflicts,
		events:      events,
		logger:      logger,
	}
}

// Execute runs one absence sync. A nil dateRange defaults to the next 90
// days. Never returns an error; the result object carries every outcome.
func (u *SyncTimeTacAbsences) Execute(ctx context.Context, tenantID uuid.UUID, dateRange *DateRange) *AbsenceSyncResult {
	ctx, span := tracing.StartSpan(ctx, "SyncTimeTacAbsences.Execute")
	defer span.End()

	ctx = appctx.SetTenantID(ctx, tenantID.String())
	result := &AbsenceSyncResult{}
	start := time.Now()

	log := models.NewSyncLog(tenantID, models.SyncServiceTimeTac, operationSyncAbsences)
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

func (u *SyncTimeTacAbsences) run(ctx context.Context, dateRange *DateRange, result *AbsenceSyncResult) error {
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

	userByTimeTacID, err := u.loadUserMap(ctx)
	if err != nil {
		return err
	}
	if len(userByTimeTacID) == 0 {
		// Soft success: nothing to do is not a failure
		result.Errors = append(result.Errors, NoMappedUsersMessage)
		return nil
	}

	from, to := resolveRange(dateRange, defaultAbsenceLookahead, false)

	remoteAbsences, err := u.api.GetAbsences(ctx, apiKey, from, to)
	if err != nil {
		return fmt.Errorf("failed to fetch timetac absences: %w", err)
	}

	typeOverrides := absenceTypeOverrides(credentials)
	synced := make([]models.Absence, 0, len(remoteAbsences))

	for _, remote := range remoteAbsences {
		externalID := timetac.ExternalID(remote.ID)

		userID, ok := userByTimeTacID[timetac.ExternalID(remote.UserID)]
		if !ok {
			result.Skipped++
			metrics.SyncItemsTotal.WithLabelValues(string(models.SyncServiceTimeTac), operationSyncAbsences, "skipped").Inc()
			continue
		}

		absence, created, err := u.syncAbsence(ctx, remote, externalID, userID, typeOverrides)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Abwesenheit %s: %s", externalID, err.Error()))
			metrics.SyncItemsTotal.WithLabelValues(string(models.SyncServiceTimeTac), operationSyncAbsences, "error").Inc()
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		synced = append(synced, *absence)
	}

	// Conflict pass covers every absence touched this run, updated ones
	// included, so range edits re-check against current allocations.
	for _, absence := range synced {
		conflicts, err := u.conflicts.DetectForAbsence(ctx, absence)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Abwesenheit %s: %s", stringValue(absence.TimeTacID), err.Error()))
			continue
		}
		result.ConflictsDetected += len(conflicts)
	}

	return nil
}

func (u *SyncTimeTacAbsences) loadUserMap(ctx context.Context) (map[string]uuid.UUID, error) {
	users, err := u.users.ListWithTimeTacID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	byTimeTacID := make(map[string]uuid.UUID, len(users))
	for _, user := range users {
		if user.TimeTacID != nil && *user.TimeTacID != "" {
			byTimeTacID[*user.TimeTacID] = user.ID
		}
	}
	return byTimeTacID, nil
}

// syncAbsence reconciles one remote absence by its external id
func (u *SyncTimeTacAbsences) syncAbsence(ctx context.Context, remote timetac.RemoteAbsence, externalID string, userID uuid.UUID, typeOverrides map[string]string) (*models.Absence, bool, error) {
	startDate, err := timetac.ParseDate(remote.StartDate)
	if err != nil {
		return nil, false, err
	}
	endDate, err := timetac.ParseDate(remote.EndDate)
	if err != nil {
		return nil, false, err
	}

	absenceType := models.AbsenceType(timetac.MapAbsenceType(remote.TypeID, typeOverrides))

	existing, err := u.absences.FindByTimeTacID(ctx, externalID)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		tenantID, err := repositories.GetTenantID(ctx)
		if err != nil {
			return nil, false, err
		}

		absence, err := models.NewAbsence(tenantID, userID, absenceType, startDate, endDate)
		if err != nil {
			return nil, false, err
		}
		absence = absence.WithTimeTacID(externalID)

		if err := u.absences.Create(ctx, &absence); err != nil {
			return nil, false, err
		}
		metrics.SyncItemsTotal.WithLabelValues(string(models.SyncServiceTimeTac), operationSyncAbsences, "created").Inc()
		return &absence, true, nil
	}

	updated, err := existing.WithDateRange(startDate, endDate)
	if err != nil {
		return nil, false, err
	}
	updated, err = updated.WithType(absenceType)
	if err != nil {
		return nil, false, err
	}

	if err := u.absences.Update(ctx, &updated); err != nil {
		return nil, false, err
	}
	metrics.SyncItemsTotal.WithLabelValues(string(models.SyncServiceTimeTac), operationSyncAbsences, "updated").Inc()
	return &updated, false, nil
}

func (u *SyncTimeTacAbsences) finish(ctx context.Context, logID, tenantID uuid.UUID, result *AbsenceSyncResult, runErr error, start time.Time) {
	status := models.SyncStatusSuccess
	var message string

	if runErr != nil {
		result.Success = false
		result.Errors = append(result.Errors, runErr.Error())
		status = models.SyncStatusFailed
		message = runErr.Error()
	} else {
		result.Success = true
		message = fmt.Sprintf("created=%d updated=%d skipped=%d conflicts=%d",
			result.Created, result.Updated, result.Skipped, result.ConflictsDetected)
		if len(result.Errors) > 0 {
			message += fmt.Sprintf(" errors=[%s]", strings.Join(result.Errors, "; "))
		}
	}

	if err := u.syncLogs.MarkCompleted(ctx, logID, status, message); err != nil {
		u.logger.WithContext(ctx).WithError(err).Error("Failed to close sync log")
	}

	metrics.SyncRunsTotal.WithLabelValues(tenantID.String(), string(models.SyncServiceTimeTac), operationSyncAbsences, string(status)).Inc()
	metrics.SyncRunDuration.WithLabelValues(tenantID.String(), string(models.SyncServiceTimeTac), operationSyncAbsences).Observe(time.Since(start).Seconds())

	if u.events != nil {
		if err := u.events.PublishSyncCompleted(ctx, tenantID.String(), models.SyncServiceTimeTac, operationSyncAbsences, result.Success); err != nil {
			u.logger.WithContext(ctx).WithError(err).Warn("Failed to publish sync event")
		}
	}

	u.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"status":    status,
	}).Infof("TimeTac absence sync finished: %s", message)
}

// resolveRange fills a missing range with the default window: lookahead for
// absences (today forward), lookback for time entries (past up to today).
func resolveRange(dateRange *DateRange, window time.Duration, back bool) (time.Time, time.Time) {
	if dateRange != nil {
		return models.DateOnly(dateRange.From), models.DateOnly(dateRange.To)
	}

	now := models.DateOnly(time.Now())
	if back {
		return now.Add(-window), now
	}
	return now, now.Add(window)
}

func absenceTypeOverrides(credentials *models.IntegrationCredentials) map[string]string {
	raw := credentials.TimeTacAbsenceTypeMap.GetValue()
	if raw == nil {
		return nil
	}
	overrides := make(map[string]string, len(raw))
	for id, typ := range raw {
		overrides[id] = string(typ)
	}
	return overrides
}
