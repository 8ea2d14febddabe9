// Package ghl contains the GoHighLevel REST client and its wire types.
package ghl

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Result is the tagged outcome of one GHL round trip. A non-2xx status is
// carried here rather than as a Go error so callers can pass it through.
type Result struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r Result) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

// Decode parses the body as JSON into v. It never assumes shape: an empty or
// non-JSON body is reported as an error.
func (r Result) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.New("ghl: empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("ghl: decode response: %w", err)
	}
	return nil
}

// Err returns a *RemoteError for non-2xx results and nil otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &RemoteError{Status: r.Status, Body: r.Body}
}

// RemoteError is an upstream non-2xx response, kept verbatim.
type RemoteError struct {
	Status int
	Body   []byte
}

func (e *RemoteError) Error() string {
	msg := string(e.Body)
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return fmt.Sprintf("ghl API returned %d: %s", e.Status, msg)
}

// ErrTransport wraps network-level failures (DNS, reset, timeout).
var ErrTransport = errors.New("ghl: transport failure")

// CustomFieldValue is one extension slot on a contact record.
type CustomFieldValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// ContactPayload is the body sent on contact create and update.
type ContactPayload struct {
	FirstName    string             `json:"firstName"`
	LastName     string             `json:"lastName"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Phone        string             `json:"phone"`
	CompanyName  string             `json:"companyName"`
	LocationID   string             `json:"locationId"`
	Source       string             `json:"source"`
	CustomFields []CustomFieldValue `json:"customFields"`
}

// ContactSummary is the subset of a contact returned by list/search endpoints.
type ContactSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// CustomField describes a custom field definition on the location.
type CustomField struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FieldKey string `json:"fieldKey"`
	DataType string `json:"dataType,omitempty"`
}

type contactEnvelope struct {
	Contact *ContactSummary `json:"contact"`
}

type contactsEnvelope struct {
	Contacts []ContactSummary `json:"contacts"`
}

type customFieldsEnvelope struct {
	CustomFields []CustomField `json:"customFields"`
}

// ContactIDFromBody extracts contact.id from a create/update response body.
func ContactIDFromBody(body []byte) string {
	var env contactEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Contact == nil {
		return ""
	}
	return env.Contact.ID
}

// DuplicateContactID extracts meta.contactId from a duplicate-contact error
// body. It returns "" when the body is not JSON or carries no id.
func DuplicateContactID(body []byte) string {
	var env struct {
		Meta struct {
			ContactID string `json:"contactId"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Meta.ContactID
}
