package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/werkbank-digital/planned/pkg/repositories"
	"github.com/werkbank-digital/planned/pkg/sync"
	"github.com/werkbank-digital/planned/pkg/validate"
)

// ProjectsHandler exposes project and phase routes
type ProjectsHandler struct {
	projects    repositories.ProjectStore
	phases      repositories.PhaseStore
	unlink      *sync.UnlinkProject
	phaseUpdate *sync.UpdateAsanaPhase
}

// NewProjectsHandler creates the projects handler
func NewProjectsHandler(
	projects repositories.ProjectStore,
	phases repositories.PhaseStore,
	unlink *sync.UnlinkProject,
	phaseUpdate *sync.UpdateAsanaPhase,
) *ProjectsHandler {
	return &ProjectsHandler{
		projects:    projects,
		phases:      phases,
		unlink:      unlink,
		phaseUpdate: phaseUpdate,
	}
}

// RegisterRoutes registers the project routes
func (h *ProjectsHandler) RegisterRoutes(g *echo.Group) {
	projects := g.Group("/projects")
	projects.GET("", h.List)
	projects.GET("/:id/phases", h.ListPhases)
	projects.POST("/:id/unlink", h.Unlink)
	projects.PUT("/:projectId/phases/:id", h.UpdatePhase)
}

// List handles GET /projects
func (h *ProjectsHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	projects, err := h.projects.List(ctx)
	if err != nil {
		return err
	}

	return SuccessResponse(c, projects)
}

// ListPhases handles GET /projects/:id/phases
func (h *ProjectsHandler) ListPhases(c echo.Context) error {
	ctx := c.Request().Context()

	projectID, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	phases, err := h.phases.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, phases)
}

// Unlink handles POST /projects/:id/unlink
func (h *ProjectsHandler) Unlink(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	projectID, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	result, err := h.unlink.Execute(ctx, tenantID, projectID)
	if err != nil {
		return err
	}

	switch result.Code {
	case sync.CodeNotFound:
		return NotFound("project not found")
	case sync.CodeForbidden:
		return Forbidden("project belongs to another tenant")
	case sync.CodeNotLinked:
		return Conflict("project is not linked to Asana")
	}

	return NoContentResponse(c)
}

// UpdatePhase handles PUT /projects/:projectId/phases/:id
func (h *ProjectsHandler) UpdatePhase(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	phaseID, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req sync.PhaseUpdate
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if _, err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}

	result, err := h.phaseUpdate.Execute(ctx, tenantID, phaseID, req)
	if err != nil {
		return err
	}

	switch result.Code {
	case sync.CodeNotFound:
		return NotFound("phase not found")
	case sync.CodeForbidden:
		return Forbidden("phase belongs to another tenant")
	}

	// SYNC_ERROR still returns the result; the local change is persisted
	// and the client needs the synced flag either way
	return SuccessResponse(c, result)
}
