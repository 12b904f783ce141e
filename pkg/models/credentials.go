package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/werkbank-digital/planned/pkg/database"
)

// IntegrationCredentials holds the per-tenant connection state for both
// external services. All token fields are stored encrypted; the sync use
// cases decrypt them at the start of a run and never write plaintext back.
type IntegrationCredentials struct {
	ID       uuid.UUID `db:"id" json:"id"`
	TenantID uuid.UUID `db:"tenant_id" json:"tenant_id"`

	// TimeTac: static long-lived API key, no refresh flow
	TimeTacAPIToken  *string `db:"timetac_api_token" json:"-"`
	TimeTacAccountID *string `db:"timetac_account_id" json:"timetac_account_id,omitempty"`

	// Asana: OAuth access/refresh token pair
	AsanaAccessToken    *string    `db:"asana_access_token" json:"-"`
	AsanaRefreshToken   *string    `db:"asana_refresh_token" json:"-"`
	AsanaTokenExpiresAt *time.Time `db:"asana_token_expires_at" json:"asana_token_expires_at,omitempty"`
	AsanaWorkspaceID    *string    `db:"asana_workspace_id" json:"asana_workspace_id,omitempty"`

	// Asana custom field GIDs used by the project/phase field mapping
	AsanaNumberFieldID         *string `db:"asana_number_field_id" json:"asana_number_field_id,omitempty"`
	AsanaSollProduktionFieldID *string `db:"asana_soll_produktion_field_id" json:"asana_soll_produktion_field_id,omitempty"`
	AsanaSollMontageFieldID    *string `db:"asana_soll_montage_field_id" json:"asana_soll_montage_field_id,omitempty"`
	AsanaBereichFieldID        *string `db:"asana_bereich_field_id" json:"asana_bereich_field_id,omitempty"`
	AsanaBudgetHoursFieldID    *string `db:"asana_budget_hours_field_id" json:"asana_budget_hours_field_id,omitempty"`

	// Per-tenant override for the TimeTac absence type mapping, keyed by the
	// remote numeric type id
	TimeTacAbsenceTypeMap database.JSONB[map[string]AbsenceType] `db:"timetac_absence_type_map" json:"timetac_absence_type_map,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (IntegrationCredentials) TableName() string {
	return "integration_credentials"
}

// HasTimeTac reports whether a TimeTac API token is stored
func (c *IntegrationCredentials) HasTimeTac() bool {
	return c.TimeTacAPIToken != nil && *c.TimeTacAPIToken != ""
}

// HasAsana reports whether an Asana access token is stored
func (c *IntegrationCredentials) HasAsana() bool {
	return c.AsanaAccessToken != nil && *c.AsanaAccessToken != ""
}

// AsanaTokenExpired reports whether the stored Asana access token has passed
// its expiry. A missing expiry means the token is treated as still valid.
func (c *IntegrationCredentials) AsanaTokenExpired(now time.Time) bool {
	return c.AsanaTokenExpiresAt != nil && now.After(*c.AsanaTokenExpiresAt)
}
