package models

import (
	"time"

	"github.com/google/uuid"
)

// MappingEntityType names the kind of local entity an external id maps to
type MappingEntityType string

const (
	MappingEntityProjectPhase MappingEntityType = "project_phase"
	MappingEntityUser         MappingEntityType = "user"
)

// IntegrationMapping links an external record id (e.g. a TimeTac project id)
// to a local entity, keyed by (tenant, service, entity type, external id).
type IntegrationMapping struct {
	ID         uuid.UUID         `db:"id" json:"id"`
	TenantID   uuid.UUID         `db:"tenant_id" json:"tenant_id"`
	Service    SyncService       `db:"service" json:"service"`
	EntityType MappingEntityType `db:"entity_type" json:"entity_type"`
	ExternalID string            `db:"external_id" json:"external_id"`
	InternalID uuid.UUID         `db:"internal_id" json:"internal_id"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (IntegrationMapping) TableName() string {
	return "integration_mappings"
}
