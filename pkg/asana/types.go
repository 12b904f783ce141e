package asana

import "strconv"

// RemoteProject is an Asana project as returned by the projects list
type RemoteProject struct {
	GID          string        `json:"gid"`
	Name         string        `json:"name"`
	Archived     bool          `json:"archived"`
	Notes        string        `json:"notes,omitempty"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
}

// RemoteSection is an Asana section (a project phase in planned terms)
type RemoteSection struct {
	GID          string        `json:"gid"`
	Name         string        `json:"name"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
}

// CustomField is one custom field value attached to a project or section
type CustomField struct {
	GID          string     `json:"gid"`
	Name         string     `json:"name"`
	Type         string     `json:"resource_subtype,omitempty"`
	NumberValue  *float64   `json:"number_value,omitempty"`
	TextValue    *string    `json:"text_value,omitempty"`
	EnumValue    *EnumValue `json:"enum_value,omitempty"`
	DisplayValue *string    `json:"display_value,omitempty"`
}

// StringValue renders the field's value as text, preferring the typed value
// over Asana's pre-rendered display value.
func (f CustomField) StringValue() string {
	switch {
	case f.TextValue != nil:
		return *f.TextValue
	case f.EnumValue != nil:
		return f.EnumValue.Name
	case f.NumberValue != nil:
		return strconv.FormatFloat(*f.NumberValue, 'f', -1, 64)
	case f.DisplayValue != nil:
		return *f.DisplayValue
	}
	return ""
}

// EnumValue is the selected option of an enum custom field
type EnumValue struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// TokenResponse is the Asana OAuth token endpoint response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}
