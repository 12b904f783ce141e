package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a schedulable employee. TimeTacID links the user to the remote
// time-tracking account; users without one are skipped by the TimeTac syncs.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TenantID  uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	TimeTacID *string   `db:"timetac_id" json:"timetac_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (User) TableName() string {
	return "users"
}
