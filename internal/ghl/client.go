package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/ghl-booking-gateway/internal/observability/metrics"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

const (
	defaultBaseURL         = "https://services.leadconnectorhq.com"
	defaultCalendarVersion = "2021-04-15"
	defaultContactsVersion = "2021-07-28"
	defaultTimeout         = 15 * time.Second
)

var clientTracer = otel.Tracer("ghl.gateway.client")

// Config holds the fixed credential and API versions for a Client.
type Config struct {
	BaseURL         string
	APIKey          string
	CalendarVersion string
	ContactsVersion string
	Timeout         time.Duration
}

// Client issues authenticated single round trips against the GHL REST API.
// It never retries.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	apiKey          string
	calendarVersion string
	contactsVersion string
	logger          *logging.Logger
	metrics         *metrics.GatewayMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics records upstream calls on m.
func WithMetrics(m *metrics.GatewayMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient constructs a GHL REST client.
func NewClient(cfg Config, logger *logging.Logger, opts ...Option) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.CalendarVersion == "" {
		cfg.CalendarVersion = defaultCalendarVersion
	}
	if cfg.ContactsVersion == "" {
		cfg.ContactsVersion = defaultContactsVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		calendarVersion: cfg.CalendarVersion,
		contactsVersion: cfg.ContactsVersion,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListSlots fetches the free-slot listing for a calendar between two epoch
// millisecond bounds. The raw per-day payload is returned untouched.
func (c *Client) ListSlots(ctx context.Context, calendarID string, startMs, endMs int64, timezone string) (Result, error) {
	q := url.Values{}
	q.Set("startDate", strconv.FormatInt(startMs, 10))
	q.Set("endDate", strconv.FormatInt(endMs, 10))
	if timezone != "" {
		q.Set("timezone", timezone)
	}
	path := fmt.Sprintf("/calendars/%s/free-slots", url.PathEscape(calendarID))
	return c.do(ctx, "list_slots", http.MethodGet, path, q, c.calendarVersion, nil)
}

// CreateAppointment posts an appointment payload.
func (c *Client) CreateAppointment(ctx context.Context, payload any) (Result, error) {
	return c.do(ctx, "create_appointment", http.MethodPost, "/calendars/events/appointments", nil, c.calendarVersion, payload)
}

// SearchContactByEmail looks up an exact email match. It returns "" when no
// contact exists and a *RemoteError on a non-2xx response.
func (c *Client) SearchContactByEmail(ctx context.Context, locationID, email string) (string, error) {
	q := url.Values{}
	q.Set("locationId", locationID)
	q.Set("email", email)
	res, err := c.do(ctx, "search_contact", http.MethodGet, "/contacts/search/duplicate", q, c.contactsVersion, nil)
	if err != nil {
		return "", err
	}
	if err := res.Err(); err != nil {
		return "", err
	}
	return ContactIDFromBody(res.Body), nil
}

// QueryContacts runs a free-text contact search, used for the ghost sweep.
func (c *Client) QueryContacts(ctx context.Context, locationID, query string, limit int) ([]ContactSummary, error) {
	q := url.Values{}
	q.Set("locationId", locationID)
	q.Set("query", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	res, err := c.do(ctx, "query_contacts", http.MethodGet, "/contacts/", q, c.contactsVersion, nil)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	var env contactsEnvelope
	if err := res.Decode(&env); err != nil {
		return nil, err
	}
	return env.Contacts, nil
}

// CreateContact posts a new contact.
func (c *Client) CreateContact(ctx context.Context, payload ContactPayload) (Result, error) {
	return c.do(ctx, "create_contact", http.MethodPost, "/contacts/", nil, c.contactsVersion, payload)
}

// UpdateContact replaces the fields of an existing contact.
func (c *Client) UpdateContact(ctx context.Context, id string, payload ContactPayload) (Result, error) {
	path := "/contacts/" + url.PathEscape(id)
	return c.do(ctx, "update_contact", http.MethodPut, path, nil, c.contactsVersion, payload)
}

// DeleteContact removes a contact.
func (c *Client) DeleteContact(ctx context.Context, id string) (Result, error) {
	path := "/contacts/" + url.PathEscape(id)
	return c.do(ctx, "delete_contact", http.MethodDelete, path, nil, c.contactsVersion, nil)
}

// ListCustomFields lists the contact custom field definitions of a location.
func (c *Client) ListCustomFields(ctx context.Context, locationID string) ([]CustomField, error) {
	q := url.Values{}
	q.Set("model", "contact")
	path := fmt.Sprintf("/locations/%s/customFields", url.PathEscape(locationID))
	res, err := c.do(ctx, "list_custom_fields", http.MethodGet, path, q, c.contactsVersion, nil)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	var env customFieldsEnvelope
	if err := res.Decode(&env); err != nil {
		return nil, err
	}
	return env.CustomFields, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, version string, body any) (Result, error) {
	ctx, span := clientTracer.Start(ctx, "ghl."+operation)
	defer span.End()
	span.SetAttributes(
		attribute.String("ghl.operation", operation),
		attribute.String("http.method", method),
	)

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			finishSpan(span, 0, err)
			return Result{}, fmt.Errorf("ghl: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		finishSpan(span, 0, err)
		return Result{}, fmt.Errorf("ghl: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Version", version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(operation, 0, time.Since(start))
		finishSpan(span, 0, err)
		return Result{}, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.metrics.ObserveUpstream(operation, resp.StatusCode, time.Since(start))
	if err != nil {
		finishSpan(span, resp.StatusCode, err)
		return Result{}, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}

	res := Result{Status: resp.StatusCode, Body: respBody}
	if !res.OK() {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("ghl API non-2xx response", "operation", operation, "status", resp.StatusCode, "path", path, "body", msg)
	}
	finishSpan(span, resp.StatusCode, nil)
	return res, nil
}

func finishSpan(span trace.Span, status int, err error) {
	if status > 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	if status >= 400 {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
