package sync

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/werkbank-digital/planned/pkg/context"
	"github.com/werkbank-digital/planned/pkg/repositories"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

// UnlinkProject detaches a project from its Asana counterpart. The project
// and its phases stay; only the linkage fields are cleared. Expected
// business failures come back as tagged results, never as errors.
type UnlinkProject struct {
	projects repositories.ProjectStore
	logger   ectologger.Logger
}

// NewUnlinkProject creates the unlink use case
func NewUnlinkProject(projects repositories.ProjectStore, logger ectologger.Logger) *UnlinkProject {
	return &UnlinkProject{projects: projects, logger: logger}
}

// Execute unlinks the project. The error return is reserved for unexpected
// storage failures.
func (u *UnlinkProject) Execute(ctx context.Context, tenantID, projectID uuid.UUID) (*UnlinkResult, error) {
	ctx, span := tracing.StartSpan(ctx, "UnlinkProject.Execute")
	defer span.End()

	ctx = appctx.SetTenantID(ctx, tenantID.String())

	project, err := u.projects.GetByID(ctx, projectID)
	if err != nil {
		return &UnlinkResult{Code: CodeNotFound}, nil
	}

	if project.TenantID != tenantID {
		return &UnlinkResult{Code: CodeForbidden}, nil
	}

	if !project.IsLinked() {
		return &UnlinkResult{Code: CodeNotLinked}, nil
	}

	unlinked := project.Unlinked()
	if err := u.projects.Update(ctx, &unlinked); err != nil {
		return nil, err
	}

	u.logger.WithContext(ctx).WithFields(map[string]any{
		"project_id": projectID,
	}).Info("Unlinked project from Asana")
	return &UnlinkResult{Success: true}, nil
}
