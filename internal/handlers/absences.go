package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/werkbank-digital/planned/pkg/repositories"
)

// AbsencesHandler exposes absence conflict routes
type AbsencesHandler struct {
	conflicts repositories.ConflictStore
}

// NewAbsencesHandler creates the absences handler
func NewAbsencesHandler(conflicts repositories.ConflictStore) *AbsencesHandler {
	return &AbsencesHandler{conflicts: conflicts}
}

// RegisterRoutes registers the absence routes
func (h *AbsencesHandler) RegisterRoutes(g *echo.Group) {
	absences := g.Group("/absences")
	absences.GET("/:id/conflicts", h.ListConflicts)
}

// ListConflicts handles GET /absences/:id/conflicts
func (h *AbsencesHandler) ListConflicts(c echo.Context) error {
	ctx := c.Request().Context()

	absenceID, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	conflicts, err := h.conflicts.ListForAbsence(ctx, absenceID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, conflicts)
}
