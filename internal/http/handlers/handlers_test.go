package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/ghl-booking-gateway/internal/booking"
	"github.com/wolfman30/ghl-booking-gateway/internal/contacts"
	"github.com/wolfman30/ghl-booking-gateway/internal/ghl"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

type creds struct {
	apiKey   bool
	location bool
}

func (c creds) HasAPIKey() bool      { return c.apiKey }
func (c creds) HasCredentials() bool { return c.apiKey && c.location }

var configured = creds{apiKey: true, location: true}

type fakeGHL struct {
	hits atomic.Int32
	ts   *httptest.Server
}

func (f *fakeGHL) calls() int { return int(f.hits.Load()) }

// newFakeGHL serves a canned response for every path and counts calls.
func newFakeGHL(t *testing.T, status int, body string) *fakeGHL {
	t.Helper()
	f := &fakeGHL{}
	f.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.ts.Close)
	return f
}

func (f *fakeGHL) gateway() *booking.Gateway {
	client := ghl.NewClient(ghl.Config{BaseURL: f.ts.URL, APIKey: "k"}, logging.Discard())
	return booking.NewGateway(client, booking.Config{LocationID: "loc-1"}, nil, nil, logging.Discard())
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestGetFreeSlots_PassThrough(t *testing.T) {
	body := `{"2026-02-11":{"slots":["2026-02-11T11:00:00+08:00"]},"traceId":"x"}`
	remote := newFakeGHL(t, http.StatusOK, body)
	h := NewAvailabilityHandler(remote.gateway(), configured, logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/api/get-free-slots?startDate=1769875200000&endDate=1772208000000&timezone=Asia/Manila", nil)
	rec := httptest.NewRecorder()
	h.GetFreeSlots(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestGetFreeSlots_RemoteStatusVerbatim(t *testing.T) {
	remote := newFakeGHL(t, http.StatusUnauthorized, `{"message":"Invalid JWT"}`)
	h := NewAvailabilityHandler(remote.gateway(), configured, logging.Discard())

	rec := httptest.NewRecorder()
	h.GetFreeSlots(rec, httptest.NewRequest(http.MethodGet, "/api/get-free-slots?startDate=1&endDate=2", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `{"message":"Invalid JWT"}`, rec.Body.String())
}

func TestGetFreeSlots_Errors(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		target  string
		creds   creds
		status  int
		message string
	}{
		{"wrong method", http.MethodPost, "/api/get-free-slots?startDate=1&endDate=2", configured, 405, "Method not allowed"},
		{"no api key", http.MethodGet, "/api/get-free-slots?startDate=1&endDate=2", creds{}, 500, "Server configuration error"},
		{"api key only is enough", http.MethodGet, "/api/get-free-slots", creds{apiKey: true}, 400, "startDate and endDate are required"},
		{"missing end", http.MethodGet, "/api/get-free-slots?startDate=1", configured, 400, "startDate and endDate are required"},
		{"not a number", http.MethodGet, "/api/get-free-slots?startDate=feb&endDate=2", configured, 400, "startDate and endDate must be epoch milliseconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newFakeGHL(t, http.StatusOK, `{}`)
			h := NewAvailabilityHandler(remote.gateway(), tt.creds, logging.Discard())

			rec := httptest.NewRecorder()
			h.GetFreeSlots(rec, httptest.NewRequest(tt.method, tt.target, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeJSON(t, rec)["error"])
			assert.Zero(t, remote.calls())
		})
	}
}

func TestGetFreeSlots_TransportError(t *testing.T) {
	remote := newFakeGHL(t, http.StatusOK, `{}`)
	gw := remote.gateway()
	remote.ts.Close()
	h := NewAvailabilityHandler(gw, configured, logging.Discard())

	rec := httptest.NewRecorder()
	h.GetFreeSlots(rec, httptest.NewRequest(http.MethodGet, "/api/get-free-slots?startDate=1&endDate=2", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "upstream request failed", decodeJSON(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "/calendars/")
	assert.NotContains(t, rec.Body.String(), "127.0.0.1")
}

func TestGetFreeSlots_EpochZeroIsForwarded(t *testing.T) {
	remote := newFakeGHL(t, http.StatusOK, `{}`)
	h := NewAvailabilityHandler(remote.gateway(), configured, logging.Discard())

	rec := httptest.NewRecorder()
	h.GetFreeSlots(rec, httptest.NewRequest(http.MethodGet, "/api/get-free-slots?startDate=0&endDate=86400000", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, remote.calls())
}

func TestGetFreeSlots_ReversedWindow(t *testing.T) {
	remote := newFakeGHL(t, http.StatusOK, `{}`)
	h := NewAvailabilityHandler(remote.gateway(), configured, logging.Discard())

	rec := httptest.NewRecorder()
	h.GetFreeSlots(rec, httptest.NewRequest(http.MethodGet, "/api/get-free-slots?startDate=2&endDate=1", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "endDate must not be before startDate", decodeJSON(t, rec)["error"])
	assert.Zero(t, remote.calls())
}

func TestGetCalendarMonth_Manila(t *testing.T) {
	remote := newFakeGHL(t, http.StatusOK, `{"2026-02-11":{"slots":["2026-02-11T11:00:00+08:00"]},"traceId":"x"}`)
	h := NewAvailabilityHandler(remote.gateway(), configured, logging.Discard())

	rec := httptest.NewRecorder()
	h.GetCalendarMonth(rec, httptest.NewRequest(http.MethodGet, "/api/calendar-month?month=2026-02&timezone=Asia/Manila", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp CalendarMonthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2026-02", resp.Month)
	assert.Equal(t, "Asia/Manila", resp.Timezone)
	assert.Equal(t, int64(1769875200000), resp.StartDate)
	assert.Equal(t, int64(1772208000000), resp.EndDate)
	assert.Len(t, resp.Days, 28)
	assert.Equal(t, []string{"2026-02-11"}, toStrings(resp.AvailableDays))
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func TestGetCalendarMonth_DefaultsToCurrentMonth(t *testing.T) {
	remote := newFakeGHL(t, http.StatusOK, `{}`)
	h := NewAvailabilityHandler(remote.gateway(), configured, logging.Discard())
	h.now = func() time.Time { return time.Date(2026, 10, 31, 20, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	// 20:00Z on Oct 31 is already November in Manila.
	h.GetCalendarMonth(rec, httptest.NewRequest(http.MethodGet, "/api/calendar-month?timezone=Asia/Manila", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-11", decodeJSON(t, rec)["month"])
}

func TestGetCalendarMonth_BadInput(t *testing.T) {
	remote := newFakeGHL(t, http.StatusOK, `{}`)
	h := NewAvailabilityHandler(remote.gateway(), configured, logging.Discard())

	for _, target := range []string{
		"/api/calendar-month?month=2026-13",
		"/api/calendar-month?month=feb",
		"/api/calendar-month?timezone=Nowhere/Land",
	} {
		rec := httptest.NewRecorder()
		h.GetCalendarMonth(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.Zero(t, remote.calls())
}

func TestGetCalendarMonth_RemoteRejection(t *testing.T) {
	remote := newFakeGHL(t, http.StatusForbidden, `{"message":"nope"}`)
	h := NewAvailabilityHandler(remote.gateway(), configured, logging.Discard())

	rec := httptest.NewRecorder()
	h.GetCalendarMonth(rec, httptest.NewRequest(http.MethodGet, "/api/calendar-month?month=2026-02", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, `{"message":"nope"}`, rec.Body.String())
}

func TestCreateAppointment_PassThrough(t *testing.T) {
	remote := newFakeGHL(t, http.StatusCreated, `{"id":"appt-1","status":"booked"}`)
	h := NewAppointmentHandler(remote.gateway(), configured, logging.Discard())

	body := `{"calendarId":"cal-1","startTime":"2026-02-11T11:00:00+08:00","contactId":"c-1"}`
	rec := httptest.NewRecorder()
	h.CreateAppointment(rec, httptest.NewRequest(http.MethodPost, "/api/create-appointment", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"id":"appt-1","status":"booked"}`, rec.Body.String())
	assert.Equal(t, 1, remote.calls())
}

func TestCreateAppointment_RemoteRejectionVerbatim(t *testing.T) {
	remote := newFakeGHL(t, http.StatusUnprocessableEntity, `The slot you have selected is no longer available.`)
	h := NewAppointmentHandler(remote.gateway(), configured, logging.Discard())

	body := `{"calendarId":"cal-1","startTime":"2026-02-11T11:00:00+08:00","contactId":"c-1"}`
	rec := httptest.NewRecorder()
	h.CreateAppointment(rec, httptest.NewRequest(http.MethodPost, "/api/create-appointment", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, `The slot you have selected is no longer available.`, rec.Body.String())
}

func TestCreateAppointment_Errors(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		body    string
		creds   creds
		status  int
		message string
	}{
		{"wrong method", http.MethodGet, ``, configured, 405, "Method not allowed"},
		{"no location", http.MethodPost, `{}`, creds{apiKey: true}, 500, "Server configuration error"},
		{"malformed json", http.MethodPost, `{"calendarId":`, configured, 400, "Invalid JSON body"},
		{"empty body", http.MethodPost, ``, configured, 400, "calendarId, startTime, and contactId are required"},
		{"missing contact", http.MethodPost, `{"calendarId":"cal-1","startTime":"2026-02-11T11:00:00+08:00"}`, configured, 400, "calendarId, startTime, and contactId are required"},
		{"bad start", http.MethodPost, `{"calendarId":"cal-1","startTime":"soon","contactId":"c-1"}`, configured, 400, "startTime is not a valid ISO-8601 timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newFakeGHL(t, http.StatusOK, `{}`)
			h := NewAppointmentHandler(remote.gateway(), tt.creds, logging.Discard())

			rec := httptest.NewRecorder()
			h.CreateAppointment(rec, httptest.NewRequest(tt.method, "/api/create-appointment", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeJSON(t, rec)["error"])
			assert.Zero(t, remote.calls())
		})
	}
}

func TestCreateAppointment_TransportErrorIsGeneric(t *testing.T) {
	remote := newFakeGHL(t, http.StatusOK, `{}`)
	gw := remote.gateway()
	remote.ts.Close()
	h := NewAppointmentHandler(gw, configured, logging.Discard())

	body := `{"calendarId":"cal-1","startTime":"2026-02-11T11:00:00+08:00","contactId":"c-1"}`
	rec := httptest.NewRecorder()
	h.CreateAppointment(rec, httptest.NewRequest(http.MethodPost, "/api/create-appointment", strings.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"upstream request failed"}`, rec.Body.String())
}

func TestCreateAppointment_BodyTooLarge(t *testing.T) {
	remote := newFakeGHL(t, http.StatusOK, `{}`)
	h := NewAppointmentHandler(remote.gateway(), configured, logging.Discard())

	big := `{"notes":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := httptest.NewRecorder()
	h.CreateAppointment(rec, httptest.NewRequest(http.MethodPost, "/api/create-appointment", strings.NewReader(big)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, remote.calls())
}

type fakeResolver struct {
	res   contacts.Resolution
	err   error
	calls int
	form  contacts.Form
}

func (f *fakeResolver) Resolve(_ context.Context, form contacts.Form) (contacts.Resolution, error) {
	f.calls++
	f.form = form
	return f.res, f.err
}

func TestCreateContact_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		res    contacts.Resolution
		err    error
		status int
		want   string
	}{
		{"created", contacts.Resolution{ContactID: "c-new", Created: true}, nil, 201, `{"success":true,"contactId":"c-new"}`},
		{"updated", contacts.Resolution{ContactID: "c-1"}, nil, 200, `{"success":true,"contactId":"c-1"}`},
		{"remote rejection", contacts.Resolution{}, &ghl.RemoteError{Status: 422, Body: []byte(`{"message":"bad phone"}`)}, 422, `{"success":false,"error":"{\"message\":\"bad phone\"}"}`},
		{"in flight", contacts.Resolution{}, contacts.ErrSubmissionInFlight, 409, `{"success":false,"error":"a submission for this email is already in progress"}`},
		{"transport", contacts.Resolution{}, ghl.ErrTransport, 500, `{"success":false,"error":"upstream request failed"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &fakeResolver{res: tt.res, err: tt.err}
			h := NewContactHandler(resolver, configured, logging.Discard())

			rec := httptest.NewRecorder()
			body := `{"email":"a@example.com","firstName":"Ann","services":["SEO","Ads"]}`
			h.CreateContact(rec, httptest.NewRequest(http.MethodPost, "/api/create-contact", strings.NewReader(body)))

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.Equal(t, contacts.StringList{"SEO", "Ads"}, resolver.form.Services)
		})
	}
}

func TestCreateContact_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		creds  creds
		status int
		want   string
	}{
		{"wrong method", http.MethodGet, ``, configured, 405, `{"success":false,"error":"Method not allowed"}`},
		{"unconfigured", http.MethodPost, `{"email":"a@example.com"}`, creds{apiKey: true}, 500, `{"success":false,"error":"Server configuration error"}`},
		{"malformed json", http.MethodPost, `not json`, configured, 400, `{"success":false,"error":"Invalid JSON body"}`},
		{"no email", http.MethodPost, `{"firstName":"Ann"}`, configured, 400, `{"success":false,"error":"Email is required"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &fakeResolver{}
			h := NewContactHandler(resolver, tt.creds, logging.Discard())

			rec := httptest.NewRecorder()
			h.CreateContact(rec, httptest.NewRequest(tt.method, "/api/create-contact", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.Zero(t, resolver.calls)
		})
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
