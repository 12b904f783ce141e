package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/redis"
	"github.com/werkbank-digital/planned/pkg/repositories"
	"github.com/werkbank-digital/planned/pkg/sync"
	"github.com/werkbank-digital/planned/pkg/timetac"
	"github.com/werkbank-digital/planned/pkg/validate"
)

// IntegrationsHandler exposes the integration setup and sync trigger routes
type IntegrationsHandler struct {
	connect     *sync.ConnectTimeTac
	asanaSync   *sync.SyncAsanaProjects
	absenceSync *sync.SyncTimeTacAbsences
	entrySync   *sync.SyncTimeTacTimeEntries
	syncLogs    repositories.SyncLogStore
	locker      *redis.Locker
	lockTTL     time.Duration
}

// NewIntegrationsHandler creates the integrations handler
func NewIntegrationsHandler(
	connect *sync.ConnectTimeTac,
	asanaSync *sync.SyncAsanaProjects,
	absenceSync *sync.SyncTimeTacAbsences,
	entrySync *sync.SyncTimeTacTimeEntries,
	syncLogs repositories.SyncLogStore,
	locker *redis.Locker,
	lockTTL time.Duration,
) *IntegrationsHandler {
	return &IntegrationsHandler{
		connect:     connect,
		asanaSync:   asanaSync,
		absenceSync: absenceSync,
		entrySync:   entrySync,
		syncLogs:    syncLogs,
		locker:      locker,
		lockTTL:     lockTTL,
	}
}

// RegisterRoutes registers the integration routes
func (h *IntegrationsHandler) RegisterRoutes(g *echo.Group) {
	integrations := g.Group("/integrations")
	integrations.POST("/timetac/connect", h.ConnectTimeTac)
	integrations.POST("/asana/sync", h.SyncAsana)
	integrations.POST("/timetac/absences/sync", h.SyncAbsences)
	integrations.POST("/timetac/time-entries/sync", h.SyncTimeEntries)
	integrations.GET("/sync-logs", h.ListSyncLogs)
}

// ConnectTimeTacRequest is the request body for connecting TimeTac
type ConnectTimeTacRequest struct {
	APIKey string `json:"api_key" validate:"required,min=1"`
}

// SyncRequest optionally narrows the sync window. Both dates are
// YYYY-MM-DD; give both or neither.
type SyncRequest struct {
	From *string `json:"from,omitempty"`
	To   *string `json:"to,omitempty"`
}

// ConnectTimeTac handles POST /integrations/timetac/connect
func (h *IntegrationsHandler) ConnectTimeTac(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	var req ConnectTimeTacRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if _, err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}

	if err := h.connect.Execute(ctx, tenantID, req.APIKey); err != nil {
		if errors.Is(err, sync.ErrInvalidAPIKey) {
			return BadRequest("invalid api key")
		}
		return err
	}

	return NoContentResponse(c)
}

// SyncAsana handles POST /integrations/asana/sync
func (h *IntegrationsHandler) SyncAsana(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	var result *sync.AsanaSyncResult
	err = h.locker.WithLock(ctx, redis.SyncKey(tenantID.String(), string(models.SyncServiceAsana)), h.lockTTL, func() error {
		result = h.asanaSync.Execute(ctx, tenantID)
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return Conflict("a sync for this integration is already running")
		}
		return err
	}

	return SuccessResponse(c, result)
}

// SyncAbsences handles POST /integrations/timetac/absences/sync
func (h *IntegrationsHandler) SyncAbsences(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	dateRange, err := parseDateRange(c)
	if err != nil {
		return err
	}

	var result *sync.AbsenceSyncResult
	err = h.locker.WithLock(ctx, redis.SyncKey(tenantID.String(), string(models.SyncServiceTimeTac)), h.lockTTL, func() error {
		result = h.absenceSync.Execute(ctx, tenantID, dateRange)
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return Conflict("a sync for this integration is already running")
		}
		return err
	}

	return SuccessResponse(c, result)
}

// SyncTimeEntries handles POST /integrations/timetac/time-entries/sync
func (h *IntegrationsHandler) SyncTimeEntries(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	dateRange, err := parseDateRange(c)
	if err != nil {
		return err
	}

	var result *sync.TimeEntrySyncResult
	err = h.locker.WithLock(ctx, redis.SyncKey(tenantID.String(), string(models.SyncServiceTimeTac)), h.lockTTL, func() error {
		result = h.entrySync.Execute(ctx, tenantID, dateRange)
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return Conflict("a sync for this integration is already running")
		}
		return err
	}

	return SuccessResponse(c, result)
}

// ListSyncLogs handles GET /integrations/sync-logs
func (h *IntegrationsHandler) ListSyncLogs(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return BadRequest("limit must be a positive integer")
		}
		limit = parsed
	}

	logs, err := h.syncLogs.ListRecent(ctx, limit)
	if err != nil {
		return err
	}

	return SuccessResponse(c, logs)
}

func parseDateRange(c echo.Context) (*sync.DateRange, error) {
	var req SyncRequest
	if err := c.Bind(&req); err != nil {
		return nil, BadRequest("invalid request body")
	}
	if req.From == nil && req.To == nil {
		return nil, nil
	}
	if req.From == nil || req.To == nil {
		return nil, BadRequest("from and to must be given together")
	}

	from, err := timetac.ParseDate(*req.From)
	if err != nil {
		return nil, BadRequest("invalid from date, expected YYYY-MM-DD")
	}
	to, err := timetac.ParseDate(*req.To)
	if err != nil {
		return nil, BadRequest("invalid to date, expected YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, BadRequest("to must not be before from")
	}

	return &sync.DateRange{From: from, To: to}, nil
}
