package timetac

// Account describes the TimeTac account an API key belongs to
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RemoteUser is a TimeTac employee record
type RemoteUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Active   bool   `json:"active"`
}

// RemoteAbsence is one absence row from the TimeTac absences endpoint.
// Dates are calendar days in "2006-01-02" form, both bounds inclusive.
type RemoteAbsence struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	TypeID    int64  `json:"absence_type_id"`
	StartDate string `json:"from_date"`
	EndDate   string `json:"to_date"`
	Status    string `json:"status,omitempty"`
}

// RemoteTimeEntry is one booked time entry from TimeTac
type RemoteTimeEntry struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	ProjectID   *int64  `json:"task_id,omitempty"`
	Date        string  `json:"date"`
	Hours       float64 `json:"duration_hours"`
	Description string  `json:"description,omitempty"`
}

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

type accountEnvelope struct {
	Data Account `json:"data"`
}
