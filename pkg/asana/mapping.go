package asana

import "strings"

// FieldConfig names the tenant-configured custom field GIDs used to extract
// planning data from Asana projects and sections. Any GID may be empty, in
// which case the corresponding value is simply absent.
type FieldConfig struct {
	NumberFieldID         string
	SollProduktionFieldID string
	SollMontageFieldID    string
	BereichFieldID        string
	BudgetHoursFieldID    string
}

// MappedProject is the tenant-neutral projection of a remote project. The
// SOLL values are project-level budget targets per work area; phases of the
// matching bereich inherit them when they carry no budget of their own.
type MappedProject struct {
	GID            string
	Name           string
	ProjectNumber  string
	Archived       bool
	Notes          string
	SollProduktion *float64
	SollMontage    *float64
}

// MappedSection is the tenant-neutral projection of a remote section
type MappedSection struct {
	GID         string
	Name        string
	Bereich     string
	BudgetHours *float64
}

// MapProject extracts the planning-relevant fields from a remote project
func MapProject(remote RemoteProject, fields FieldConfig) MappedProject {
	mapped := MappedProject{
		GID:      remote.GID,
		Name:     strings.TrimSpace(remote.Name),
		Archived: remote.Archived,
		Notes:    remote.Notes,
	}

	if fields.NumberFieldID != "" {
		if cf := findField(remote.CustomFields, fields.NumberFieldID); cf != nil {
			mapped.ProjectNumber = cf.StringValue()
		}
	}
	mapped.SollProduktion = numberField(remote.CustomFields, fields.SollProduktionFieldID)
	mapped.SollMontage = numberField(remote.CustomFields, fields.SollMontageFieldID)

	return mapped
}

// MapSection extracts the planning-relevant fields from a remote section.
// The Bereich enum value is lowercased so it matches the stored enum; unknown
// values are passed through for the caller to reject.
func MapSection(remote RemoteSection, fields FieldConfig) MappedSection {
	mapped := MappedSection{
		GID:  remote.GID,
		Name: strings.TrimSpace(remote.Name),
	}

	if fields.BereichFieldID != "" {
		if cf := findField(remote.CustomFields, fields.BereichFieldID); cf != nil {
			if cf.EnumValue != nil {
				mapped.Bereich = strings.ToLower(strings.TrimSpace(cf.EnumValue.Name))
			}
		}
	}

	mapped.BudgetHours = numberField(remote.CustomFields, fields.BudgetHoursFieldID)

	return mapped
}

func numberField(fields []CustomField, gid string) *float64 {
	if gid == "" {
		return nil
	}
	cf := findField(fields, gid)
	if cf == nil || cf.NumberValue == nil {
		return nil
	}
	value := *cf.NumberValue
	return &value
}

func findField(fields []CustomField, gid string) *CustomField {
	for i := range fields {
		if fields[i].GID == gid {
			return &fields[i]
		}
	}
	return nil
}
