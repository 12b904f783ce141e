package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncService names the external service a sync run talks to
type SyncService string

const (
	SyncServiceAsana   SyncService = "asana"
	SyncServiceTimeTac SyncService = "timetac"
)

// SyncStatus is the lifecycle state of a sync run
type SyncStatus string

const (
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncLog records one synchronization run. Every run creates exactly one row
// at start and writes exactly one terminal update (success or failed).
type SyncLog struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	TenantID    uuid.UUID   `db:"tenant_id" json:"tenant_id"`
	Service     SyncService `db:"service" json:"service"`
	Operation   string      `db:"operation" json:"operation"`
	Status      SyncStatus  `db:"status" json:"status"`
	Message     *string     `db:"message" json:"message,omitempty"`
	StartedAt   time.Time   `db:"started_at" json:"started_at"`
	CompletedAt *time.Time  `db:"completed_at" json:"completed_at,omitempty"`
}

// TableName returns the database table name
func (SyncLog) TableName() string {
	return "sync_logs"
}

// NewSyncLog creates a running sync log entry
func NewSyncLog(tenantID uuid.UUID, service SyncService, operation string) SyncLog {
	return SyncLog{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Service:   service,
		Operation: operation,
		Status:    SyncStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}
