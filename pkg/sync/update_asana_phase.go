package sync

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/werkbank-digital/planned/pkg/context"
	"github.com/werkbank-digital/planned/pkg/crypto"
	"github.com/werkbank-digital/planned/pkg/repositories"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

// PhaseUpdate carries the edited fields of a phase. Nil fields are untouched.
type PhaseUpdate struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1"`
	BudgetHours *float64 `json:"budget_hours,omitempty" validate:"omitempty,gte=0"`
}

// UpdateAsanaPhase applies a phase edit locally and pushes it to Asana,
// last write wins. The local write always happens first so the UI reflects
// the change even when the remote push degrades. Only an Asana API error
// during the push itself is a hard failure; a missing link, missing
// credentials or failed token refresh soft-degrade to synced=false.
type UpdateAsanaPhase struct {
	credentials repositories.CredentialsStore
	projects    repositories.ProjectStore
	phases      repositories.PhaseStore
	api         AsanaAPI
	cipher      crypto.Cipher
	logger      ectologger.Logger
}

// NewUpdateAsanaPhase creates the phase push use case
func NewUpdateAsanaPhase(
	credentials repositories.CredentialsStore,
	projects repositories.ProjectStore,
	phases repositories.PhaseStore,
	api AsanaAPI,
	cipher crypto.Cipher,
	logger ectologger.Logger,
) *UpdateAsanaPhase {
	return &UpdateAsanaPhase{
		credentials: credentials,
		projects:    projects,
		phases:      phases,
		api:         api,
		cipher:      cipher,
		logger:      logger,
	}
}

// Execute updates the phase. The error return is reserved for unexpected
// storage failures and invalid input.
func (u *UpdateAsanaPhase) Execute(ctx context.Context, tenantID, phaseID uuid.UUID, update PhaseUpdate) (*PhaseUpdateResult, error) {
	ctx, span := tracing.StartSpan(ctx, "UpdateAsanaPhase.Execute")
	defer span.End()

	ctx = appctx.SetTenantID(ctx, tenantID.String())

	phase, err := u.phases.GetByID(ctx, phaseID)
	if err != nil {
		return &PhaseUpdateResult{Code: CodeNotFound}, nil
	}
	if phase.TenantID != tenantID {
		return &PhaseUpdateResult{Code: CodeForbidden}, nil
	}

	updated := *phase
	if update.Name != nil {
		updated = updated.WithName(*update.Name)
	}
	if update.BudgetHours != nil {
		updated, err = updated.WithBudgetHours(*update.BudgetHours)
		if err != nil {
			return nil, err
		}
	}

	// Local write comes first; remote push failures never roll it back
	if err := u.phases.Update(ctx, &updated); err != nil {
		return nil, err
	}

	result := &PhaseUpdateResult{Success: true, AsanaGID: updated.AsanaGID}

	if updated.AsanaGID == nil || *updated.AsanaGID == "" {
		return result, nil
	}

	credentials, err := u.credentials.GetByTenant(ctx)
	if err != nil {
		if !credentialsMissing(err) {
			u.logger.WithContext(ctx).WithError(err).Warn("Skipping Asana push, credentials unavailable")
		}
		return result, nil
	}
	if !credentials.HasAsana() {
		return result, nil
	}

	token, err := asanaAccessToken(ctx, credentials, u.cipher, u.api, u.credentials, u.logger)
	if err != nil {
		// The local change is already persisted; a dead token only means
		// the remote copy lags behind
		u.logger.WithContext(ctx).WithError(err).Warn("Skipping Asana push, no usable token")
		return result, nil
	}

	if update.Name != nil {
		if err := u.api.UpdateSection(ctx, *updated.AsanaGID, updated.Name, token); err != nil {
			u.logger.WithContext(ctx).WithError(err).Error("Failed to push phase name to Asana")
			return &PhaseUpdateResult{Code: CodeSyncError, AsanaGID: updated.AsanaGID}, nil
		}
	}

	if update.BudgetHours != nil && credentials.AsanaBudgetHoursFieldID != nil {
		project, err := u.projects.GetByID(ctx, updated.ProjectID)
		if err == nil && project.IsLinked() {
			err = u.api.UpdateProjectCustomField(ctx, *project.AsanaGID, *credentials.AsanaBudgetHoursFieldID, *update.BudgetHours, token)
			if err != nil {
				u.logger.WithContext(ctx).WithError(err).Error("Failed to push budget hours to Asana")
				return &PhaseUpdateResult{Code: CodeSyncError, AsanaGID: updated.AsanaGID}, nil
			}
		}
	}

	result.Synced = true
	return result, nil
}
