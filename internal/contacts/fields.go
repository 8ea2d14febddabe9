// Package contacts reconciles website form submissions with GHL contacts.
package contacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wolfman30/ghl-booking-gateway/internal/ghl"
)

const contactSource = "website form"

var (
	// ErrEmailRequired is returned when the form carries no email.
	ErrEmailRequired = errors.New("email is required")

	// ErrSubmissionInFlight is returned when another submission for the same
	// email is still being reconciled.
	ErrSubmissionInFlight = errors.New("a submission for this email is already in progress")
)

// StringList accepts either a JSON array of strings or a single string.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*s = nil
		} else {
			*s = StringList{single}
		}
		return nil
	}
	// Anything else (null, numbers, objects) means no selection.
	*s = nil
	return nil
}

// Form is the lead-capture form as posted by the website.
type Form struct {
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	BusinessName string     `json:"businessName"`
	LeadSource   string     `json:"leadSource"`
	Services     StringList `json:"services"`
	GHLStatus    string     `json:"ghlStatus"`
	ProjectType  string     `json:"projectType"`
	Timeline     string     `json:"timeline"`
	Description  string     `json:"description"`
}

// Validate reports ErrEmailRequired for a blank email.
func (f Form) Validate() error {
	if strings.TrimSpace(f.Email) == "" {
		return ErrEmailRequired
	}
	return nil
}

// FieldMap holds the GHL custom field ids of the seven form extension fields.
// The yaml keys are the GHL field keys without the "contact." prefix.
type FieldMap struct {
	BusinessName string `yaml:"business_name,omitempty"`
	LeadSource   string `yaml:"lead_source,omitempty"`
	Services     string `yaml:"services_needed,omitempty"`
	GHLStatus    string `yaml:"do_you_currently_use_gohighlevel,omitempty"`
	ProjectType  string `yaml:"what_type_of_project_are_you_looking_for,omitempty"`
	Timeline     string `yaml:"how_soon_do_you_need_this_service,omitempty"`
	Description  string `yaml:"briefly_describe_your_main_goal_or_problem,omitempty"`
}

// FieldKeys lists the GHL field keys a FieldMap covers, in payload order.
var FieldKeys = []string{
	"business_name",
	"lead_source",
	"services_needed",
	"do_you_currently_use_gohighlevel",
	"what_type_of_project_are_you_looking_for",
	"how_soon_do_you_need_this_service",
	"briefly_describe_your_main_goal_or_problem",
}

// DefaultFieldMap returns the field ids of the production location.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		BusinessName: "crkMxg5CdJqBfizIWiwr",
		LeadSource:   "rkFsKxzDjlAmITs3H23E",
		Services:     "y9Lyv8PhmusMEFhZHsEr",
		GHLStatus:    "yFLW0YKN2Qr9htx5oJ5d",
		ProjectType:  "5eg1MnLggnCrgH9eDQe0",
		Timeline:     "d9EEIcFiJ1YdG7bUK6Qm",
		Description:  "sdBj2f1FCLqJAraea06O",
	}
}

// Assign sets the id for a field key ("contact." prefix allowed). It reports
// whether the key is one of FieldKeys.
func (m *FieldMap) Assign(key, id string) bool {
	switch strings.TrimPrefix(key, "contact.") {
	case "business_name":
		m.BusinessName = id
	case "lead_source":
		m.LeadSource = id
	case "services_needed":
		m.Services = id
	case "do_you_currently_use_gohighlevel":
		m.GHLStatus = id
	case "what_type_of_project_are_you_looking_for":
		m.ProjectType = id
	case "how_soon_do_you_need_this_service":
		m.Timeline = id
	case "briefly_describe_your_main_goal_or_problem":
		m.Description = id
	default:
		return false
	}
	return true
}

// Missing returns the field keys that have no id.
func (m FieldMap) Missing() []string {
	var missing []string
	for i, id := range m.ids() {
		if strings.TrimSpace(id) == "" {
			missing = append(missing, FieldKeys[i])
		}
	}
	return missing
}

func (m FieldMap) ids() []string {
	return []string{m.BusinessName, m.LeadSource, m.Services, m.GHLStatus, m.ProjectType, m.Timeline, m.Description}
}

// LoadFieldMap reads a YAML field map. Keys absent from the file keep their
// default ids.
func LoadFieldMap(path string) (FieldMap, error) {
	fields := DefaultFieldMap()
	if strings.TrimSpace(path) == "" {
		return fields, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FieldMap{}, fmt.Errorf("contacts: read field map: %w", err)
	}
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return FieldMap{}, fmt.Errorf("contacts: parse field map: %w", err)
	}
	if missing := fields.Missing(); len(missing) > 0 {
		return FieldMap{}, fmt.Errorf("contacts: field map has empty ids for %s", strings.Join(missing, ", "))
	}
	return fields, nil
}

// BuildPayload maps a form onto the GHL contact shape.
func BuildPayload(form Form, locationID string, fields FieldMap) ghl.ContactPayload {
	var nameParts []string
	for _, part := range []string{form.FirstName, form.LastName} {
		if part != "" {
			nameParts = append(nameParts, part)
		}
	}
	values := []string{
		form.BusinessName,
		form.LeadSource,
		strings.Join(form.Services, ", "),
		form.GHLStatus,
		form.ProjectType,
		form.Timeline,
		form.Description,
	}
	custom := make([]ghl.CustomFieldValue, 0, len(values))
	for i, id := range fields.ids() {
		custom = append(custom, ghl.CustomFieldValue{ID: id, Value: values[i]})
	}

	return ghl.ContactPayload{
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Name:         strings.Join(nameParts, " "),
		Email:        form.Email,
		Phone:        form.Phone,
		CompanyName:  form.BusinessName,
		LocationID:   locationID,
		Source:       contactSource,
		CustomFields: custom,
	}
}
