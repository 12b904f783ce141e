package timetac

import (
	"fmt"
	"strconv"
	"time"
)

// Default TimeTac absence type ids. Tenants can override these through
// their credential configuration.
var defaultAbsenceTypes = map[string]string{
	"1": "vacation",
	"2": "sick",
	"3": "holiday",
	"4": "training",
}

// MapAbsenceType translates a TimeTac absence type id into a local absence
// type name. The tenant override map wins over the defaults; anything
// unknown maps to "other".
func MapAbsenceType(externalTypeID int64, overrides map[string]string) string {
	key := strconv.FormatInt(externalTypeID, 10)

	if overrides != nil {
		if mapped, ok := overrides[key]; ok {
			return mapped
		}
	}
	if mapped, ok := defaultAbsenceTypes[key]; ok {
		return mapped
	}
	return "other"
}

// ParseDate parses a TimeTac calendar-day value
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timetac date %q: %w", value, err)
	}
	return parsed, nil
}

// ExternalID renders a TimeTac numeric id in the form stored on local rows
func ExternalID(id int64) string {
	return strconv.FormatInt(id, 10)
}
