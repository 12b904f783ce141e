// Package sync contains the integration use cases: pulling projects and
// phases from Asana, pulling absences and time entries from TimeTac, and the
// connect/unlink/push flows around them. Background syncs never return an
// error from Execute; every outcome, including total failure, is expressed
// through the result object and a terminal sync log write.
package sync

// Failure codes for the interactive use cases. These are stable strings the
// API surface exposes; callers branch on them instead of error types.
const (
	CodeForbidden = "FORBIDDEN"
	CodeNotLinked = "NOT_LINKED"
	CodeNotFound  = "NOT_FOUND"
	CodeSyncError = "SYNC_ERROR"
)

// AsanaSyncResult is the outcome of one Asana project/phase sync run.
// Per-item failures land in Errors without flipping Success; only a
// precondition failure before the project loop makes the run unsuccessful.
type AsanaSyncResult struct {
	Success          bool     `json:"success"`
	ProjectsCreated  int      `json:"projects_created"`
	ProjectsUpdated  int      `json:"projects_updated"`
	ProjectsArchived int      `json:"projects_archived"`
	PhasesCreated    int      `json:"phases_created"`
	PhasesUpdated    int      `json:"phases_updated"`
	Errors           []string `json:"errors,omitempty"`
}

// AbsenceSyncResult is the outcome of one TimeTac absence sync run
type AbsenceSyncResult struct {
	Success           bool     `json:"success"`
	Created           int      `json:"created"`
	Updated           int      `json:"updated"`
	Skipped           int      `json:"skipped"`
	ConflictsDetected int      `json:"conflicts_detected"`
	Errors            []string `json:"errors,omitempty"`
}

// TimeEntrySyncResult is the outcome of one TimeTac time entry sync run
type TimeEntrySyncResult struct {
	Success bool     `json:"success"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// UnlinkResult is the tagged outcome of unlinking a project from Asana
type UnlinkResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
}

// PhaseUpdateResult is the tagged outcome of a local phase edit pushed to
// Asana. Synced reports whether the remote push happened; a soft false is
// still an overall success.
type PhaseUpdateResult struct {
	Success  bool    `json:"success"`
	Code     string  `json:"code,omitempty"`
	Synced   bool    `json:"synced"`
	AsanaGID *string `json:"asana_gid,omitempty"`
}
