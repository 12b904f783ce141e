package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/werkbank-digital/planned/pkg/asana"
	appctx "github.com/werkbank-digital/planned/pkg/context"
	"github.com/werkbank-digital/planned/pkg/crypto"
	"github.com/werkbank-digital/planned/pkg/metrics"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/repositories"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

const operationSyncProjects = "sync_projects"

// SyncAsanaProjects pulls all projects and sections of the tenant's Asana
// workspace and reconciles them into local projects and phases, keyed 1:1 by
// Asana GID.
type SyncAsanaProjects struct {
	credentials repositories.CredentialsStore
	projects    repositories.ProjectStore
	phases      repositories.PhaseStore
	syncLogs    repositories.SyncLogStore
	api         AsanaAPI
	cipher      crypto.Cipher
	events      EventPublisher
	logger      ectologger.Logger
}

// NewSyncAsanaProjects creates the Asana project sync use case. events may
// be nil.
func NewSyncAsanaProjects(
	credentials repositories.CredentialsStore,
	projects repositories.ProjectStore,
	phases repositories.PhaseStore,
	syncLogs repositories.SyncLogStore,
	api AsanaAPI,
	cipher crypto.Cipher,
	events EventPublisher,
	logger ectologger.Logger,
) *SyncAsanaProjects {
	return &SyncAsanaProjects{
		credentials: credentials,
		projects:    projects,
		phases:      phases,
		syncLogs:    syncLogs,
		api:         api,
		cipher:      cipher,
		events:      events,
		logger:      logger,
	}
}

// Execute runs one sync for the tenant. It never returns an error; every
// outcome, including precondition failures, is captured in the result and
// closed out with exactly one terminal sync log write.
func (u *SyncAsanaProjects) Execute(ctx context.Context, tenantID uuid.UUID) *AsanaSyncResult {
	ctx, span := tracing.StartSpan(ctx, "SyncAsanaProjects.Execute")
	defer span.End()

	ctx = appctx.SetTenantID(ctx, tenantID.String())
	result := &AsanaSyncResult{}
	start := time.Now()

	log := models.NewSyncLog(tenantID, models.SyncServiceAsana, operationSyncProjects)
	if err := u.syncLogs.Create(ctx, &log); err != nil {
		u.logger.WithContext(ctx).WithError(err).Error("Failed to open sync log")
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	ctx = appctx.SetSyncRunID(ctx, log.ID.String())

	err := u.run(ctx, result)
	u.finish(ctx, log.ID, tenantID, result, err, start)
	return result
}

func (u *SyncAsanaProjects) run(ctx context.Context, result *AsanaSyncResult) error {
	credentials, err := u.credentials.GetByTenant(ctx)
	if err != nil {
		if credentialsMissing(err) {
			return ErrAsanaNotConnected
		}
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	token, err := asanaAccessToken(ctx, credentials, u.cipher, u.api, u.credentials, u.logger)
	if err != nil {
		return err
	}

	if credentials.AsanaWorkspaceID == nil || *credentials.AsanaWorkspaceID == "" {
		return ErrNoWorkspace
	}

	remoteProjects, err := u.api.GetProjects(ctx, *credentials.AsanaWorkspaceID, token)
	if err != nil {
		return fmt.Errorf("failed to fetch asana projects: %w", err)
	}

	fields := asanaFieldConfig(credentials)
	seen := make(map[string]struct{}, len(remoteProjects))

	for _, remote := range remoteProjects {
		seen[remote.GID] = struct{}{}
		mapped := asana.MapProject(remote, fields)

		projectID, err := u.syncProject(ctx, mapped, result)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Projekt %s: %s", remote.Name, err.Error()))
			metrics.SyncItemsTotal.WithLabelValues(string(models.SyncServiceAsana), operationSyncProjects, "error").Inc()
			continue
		}

		if err := u.syncPhases(ctx, projectID, mapped, fields, token, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Phasen-Sync für Projekt %s: %s", projectID, err.Error()))
		}
	}

	u.archiveAbsent(ctx, seen, result)
	return nil
}

// syncProject reconciles one remote project and returns the local project id
func (u *SyncAsanaProjects) syncProject(ctx context.Context, mapped asana.MappedProject, result *AsanaSyncResult) (uuid.UUID, error) {
	now := time.Now().UTC()

	existing, err := u.projects.FindByAsanaGID(ctx, mapped.GID)
	if err != nil {
		return uuid.Nil, err
	}

	if existing == nil {
		tenantID, err := repositories.GetTenantID(ctx)
		if err != nil {
			return uuid.Nil, err
		}

		// New projects start active; archived ones arrive completed
		status := models.ProjectStatusActive
		if mapped.Archived {
			status = models.ProjectStatusCompleted
		}

		project, err := models.NewProject(tenantID, mapped.Name, status)
		if err != nil {
			return uuid.Nil, err
		}
		project = project.WithAsanaLink(mapped.GID, now)
		if mapped.ProjectNumber != "" {
			project.Number = &mapped.ProjectNumber
		}
		if mapped.Notes != "" {
			project.Notes = &mapped.Notes
		}

		if err := u.projects.Create(ctx, &project); err != nil {
			return uuid.Nil, err
		}
		result.ProjectsCreated++
		metrics.SyncItemsTotal.WithLabelValues(string(models.SyncServiceAsana), operationSyncProjects, "created").Inc()
		return project.ID, nil
	}

	updated := *existing
	updated.Name = mapped.Name
	if mapped.ProjectNumber != "" {
		updated.Number = &mapped.ProjectNumber
	}
	if mapped.Notes != "" {
		updated.Notes = &mapped.Notes
	}
	// Remote archival always wins; otherwise local status is untouched
	if mapped.Archived {
		updated.Status = models.ProjectStatusCompleted
	}
	updated.SyncedAt = &now

	if err := u.projects.Update(ctx, &updated); err != nil {
		return uuid.Nil, err
	}
	result.ProjectsUpdated++
	metrics.SyncItemsTotal.WithLabelValues(string(models.SyncServiceAsana), operationSyncProjects, "updated").Inc()
	return updated.ID, nil
}

// syncPhases reconciles a project's sections in their remote display order;
// the ordinal position becomes the phase's sort order. A section without its
// own budget value inherits the project-level SOLL hours of its bereich.
func (u *SyncAsanaProjects) syncPhases(ctx context.Context, projectID uuid.UUID, project asana.MappedProject, fields asana.FieldConfig, token string, result *AsanaSyncResult) error {
	sections, err := u.api.GetSections(ctx, project.GID, token)
	if err != nil {
		return err
	}

	for i, section := range sections {
		mapped := asana.MapSection(section, fields)

		existing, err := u.phases.FindByAsanaGID(ctx, projectID, section.GID)
		if err != nil {
			return err
		}

		if existing == nil {
			tenantID, err := repositories.GetTenantID(ctx)
			if err != nil {
				return err
			}

			phase, err := models.NewProjectPhase(tenantID, projectID, mapped.Name)
			if err != nil {
				return err
			}
			phase = phase.WithAsanaGID(section.GID).WithSortOrder(i)
			bereich, hasBereich := parseBereich(mapped.Bereich)
			if hasBereich {
				phase = phase.WithBereich(bereich)
			}
			budget := mapped.BudgetHours
			if budget == nil && hasBereich {
				budget = sollForBereich(project, bereich)
			}
			if budget != nil {
				phase, err = phase.WithBudgetHours(*budget)
				if err != nil {
					return err
				}
			}

			if err := u.phases.Create(ctx, &phase); err != nil {
				return err
			}
			result.PhasesCreated++
			continue
		}

		updated := *existing
		updated.Name = mapped.Name
		updated.SortOrder = i
		if bereich, ok := parseBereich(mapped.Bereich); ok {
			updated.Bereich = &bereich
		}
		budget := mapped.BudgetHours
		if budget == nil && updated.Bereich != nil {
			budget = sollForBereich(project, *updated.Bereich)
		}
		if budget != nil {
			updated.BudgetHours = budget
		}

		if err := u.phases.Update(ctx, &updated); err != nil {
			return err
		}
		result.PhasesUpdated++
	}

	return nil
}

// sollForBereich picks the project-level SOLL target matching a phase's work
// area. Extern phases carry no project-level target.
func sollForBereich(project asana.MappedProject, bereich models.Bereich) *float64 {
	switch bereich {
	case models.BereichProduktion:
		return project.SollProduktion
	case models.BereichMontage:
		return project.SollMontage
	}
	return nil
}

// archiveAbsent completes linked local projects whose GID the remote fetch
// no longer returned. Projects are never hard-deleted by sync.
func (u *SyncAsanaProjects) archiveAbsent(ctx context.Context, seen map[string]struct{}, result *AsanaSyncResult) {
	locals, err := u.projects.List(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Abgleich lokaler Projekte: %s", err.Error()))
		return
	}

	for _, local := range locals {
		if !local.IsLinked() || local.Status == models.ProjectStatusCompleted {
			continue
		}
		if _, ok := seen[*local.AsanaGID]; ok {
			continue
		}

		archived := local.WithStatus(models.ProjectStatusCompleted)
		if err := u.projects.Update(ctx, &archived); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Projekt %s: %s", local.Name, err.Error()))
			continue
		}
		result.ProjectsArchived++
	}
}

// finish closes the run: one terminal sync log write, metrics and an
// optional event.
func (u *SyncAsanaProjects) finish(ctx context.Context, logID, tenantID uuid.UUID, result *AsanaSyncResult, runErr error, start time.Time) {
	status := models.SyncStatusSuccess
	var message string

	if runErr != nil {
		result.Success = false
		result.Errors = append(result.Errors, runErr.Error())
		status = models.SyncStatusFailed
		message = runErr.Error()
	} else {
		result.Success = true
		message = fmt.Sprintf("created=%d updated=%d archived=%d phases_created=%d phases_updated=%d",
			result.ProjectsCreated, result.ProjectsUpdated, result.ProjectsArchived,
			result.PhasesCreated, result.PhasesUpdated)
		if len(result.Errors) > 0 {
			message += fmt.Sprintf(" errors=[%s]", strings.Join(result.Errors, "; "))
		}
	}

	if err := u.syncLogs.MarkCompleted(ctx, logID, status, message); err != nil {
		u.logger.WithContext(ctx).WithError(err).Error("Failed to close sync log")
	}

	metrics.SyncRunsTotal.WithLabelValues(tenantID.String(), string(models.SyncServiceAsana), operationSyncProjects, string(status)).Inc()
	metrics.SyncRunDuration.WithLabelValues(tenantID.String(), string(models.SyncServiceAsana), operationSyncProjects).Observe(time.Since(start).Seconds())

	if u.events != nil {
		if err := u.events.PublishSyncCompleted(ctx, tenantID.String(), models.SyncServiceAsana, operationSyncProjects, result.Success); err != nil {
			u.logger.WithContext(ctx).WithError(err).Warn("Failed to publish sync event")
		}
	}

	u.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"status":    status,
	}).Infof("Asana project sync finished: %s", message)
}

func parseBereich(value string) (models.Bereich, bool) {
	switch models.Bereich(value) {
	case models.BereichProduktion, models.BereichMontage, models.BereichExtern:
		return models.Bereich(value), true
	}
	return "", false
}
