// Package booking sequences availability lookups and appointment creation
// against the GHL calendar API.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/ghl-booking-gateway/internal/ghl"
	"github.com/wolfman30/ghl-booking-gateway/internal/notify"
	"github.com/wolfman30/ghl-booking-gateway/internal/observability/metrics"
	"github.com/wolfman30/ghl-booking-gateway/internal/scheduling"
	"github.com/wolfman30/ghl-booking-gateway/internal/tasks"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

var tracer = otel.Tracer("ghl.gateway.booking")

var (
	// ErrMissingFields is returned when an appointment lacks a required field.
	ErrMissingFields = errors.New("calendarId, startTime, and contactId are required")

	// ErrMissingWindow is the message for an availability request that names
	// no range.
	ErrMissingWindow = errors.New("startDate and endDate are required")

	// ErrInvalidWindow is returned when an availability query ends before it
	// starts.
	ErrInvalidWindow = errors.New("endDate must not be before startDate")
)

const (
	// DefaultCalendarID is used when a request names no calendar.
	DefaultCalendarID = "jGIhsfyokB3JIAKIiV47"
	defaultDuration   = 30 * time.Minute
)

// CalendarAPI is the slice of the GHL client the gateway needs.
type CalendarAPI interface {
	ListSlots(ctx context.Context, calendarID string, startMs, endMs int64, timezone string) (ghl.Result, error)
	CreateAppointment(ctx context.Context, payload any) (ghl.Result, error)
}

// GhostSweeper removes the placeholder contact GHL creates on booking.
type GhostSweeper interface {
	Sweep(ctx context.Context, locationID string)
}

// Notifier is told about successful bookings.
type Notifier interface {
	NotifyBooking(ctx context.Context, b notify.Booking) error
}

// TaskRunner runs detached work.
type TaskRunner interface {
	Submit(name string, fn tasks.Task) bool
}

// Config is the fixed booking configuration of one deployment.
type Config struct {
	CalendarID string
	LocationID string
	Duration   time.Duration
}

// Gateway validates booking requests and forwards them to GHL.
type Gateway struct {
	api      CalendarAPI
	cfg      Config
	sweeper  GhostSweeper
	notifier Notifier
	runner   TaskRunner
	logger   *logging.Logger
	metrics  *metrics.GatewayMetrics
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithNotifier emails the owner after each successful booking.
func WithNotifier(n Notifier) Option {
	return func(g *Gateway) {
		g.notifier = n
	}
}

// WithMetrics records booking outcomes on m.
func WithMetrics(m *metrics.GatewayMetrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// NewGateway creates a Gateway. sweeper and runner may be nil, in which case
// no detached work is scheduled.
func NewGateway(api CalendarAPI, cfg Config, sweeper GhostSweeper, runner TaskRunner, logger *logging.Logger, opts ...Option) *Gateway {
	if strings.TrimSpace(cfg.CalendarID) == "" {
		cfg.CalendarID = DefaultCalendarID
	}
	if cfg.Duration <= 0 {
		cfg.Duration = defaultDuration
	}
	if logger == nil {
		logger = logging.Default()
	}
	g := &Gateway{
		api:     api,
		cfg:     cfg,
		sweeper: sweeper,
		runner:  runner,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AvailabilityQuery is a free-slot lookup. Both bounds are epoch
// milliseconds; zero is a valid instant.
type AvailabilityQuery struct {
	CalendarID string
	StartMs    int64
	EndMs      int64
	Timezone   string
}

// AvailabilityResult carries the remote response verbatim. Slots is set only
// for a 2xx response whose body is a per-day object.
type AvailabilityResult struct {
	Status int
	Body   []byte
	Slots  scheduling.SlotMap
}

// GetAvailability fetches free slots for a window.
func (g *Gateway) GetAvailability(ctx context.Context, q AvailabilityQuery) (AvailabilityResult, error) {
	if q.EndMs < q.StartMs {
		return AvailabilityResult{}, ErrInvalidWindow
	}
	calendarID := strings.TrimSpace(q.CalendarID)
	if calendarID == "" {
		calendarID = g.cfg.CalendarID
	}

	ctx, span := tracer.Start(ctx, "booking.get_availability")
	defer span.End()
	span.SetAttributes(
		attribute.String("calendar.id", calendarID),
		attribute.String("timezone", q.Timezone),
	)

	res, err := g.api.ListSlots(ctx, calendarID, q.StartMs, q.EndMs, q.Timezone)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list slots failed")
		return AvailabilityResult{}, err
	}

	out := AvailabilityResult{Status: res.Status, Body: res.Body}
	if res.OK() {
		slots, err := scheduling.NormalizeSlots(res.Body)
		if err != nil {
			g.logger.Warn("free-slots payload not a per-day object", "calendar_id", calendarID, "error", err)
		} else {
			out.Slots = slots
		}
	}
	return out, nil
}

// MonthResult is the availability grid of one month. When the remote call was
// rejected, Status and Body carry the rejection and Cells is nil.
type MonthResult struct {
	Window   scheduling.Window
	Timezone string
	Cells    []scheduling.GridCell
	Status   int
	Body     []byte
}

// GetMonth builds the month calendar for year/month in timezone and marks the
// days that have at least one slot.
func (g *Gateway) GetMonth(ctx context.Context, calendarID string, year int, month time.Month, timezone string) (MonthResult, error) {
	loc, err := scheduling.ResolveLocation(timezone)
	if err != nil {
		return MonthResult{}, err
	}
	window := scheduling.MonthWindow(year, month, loc)

	avail, err := g.GetAvailability(ctx, AvailabilityQuery{
		CalendarID: calendarID,
		StartMs:    window.StartMs(),
		EndMs:      window.EndMs(),
		Timezone:   timezone,
	})
	if err != nil {
		return MonthResult{}, err
	}

	out := MonthResult{Window: window, Timezone: loc.String(), Status: avail.Status, Body: avail.Body}
	if avail.Status < 200 || avail.Status > 299 {
		return out, nil
	}
	out.Cells = scheduling.MarkAvailability(scheduling.MonthGrid(year, month, loc), avail.Slots)
	return out, nil
}

// AppointmentRequest is the booking form as posted. Unknown fields are
// forwarded to GHL unchanged.
type AppointmentRequest map[string]any

func (r AppointmentRequest) str(key string) string {
	s, _ := r[key].(string)
	return s
}

func (r AppointmentRequest) CalendarID() string { return r.str("calendarId") }
func (r AppointmentRequest) StartTime() string  { return r.str("startTime") }
func (r AppointmentRequest) EndTime() string    { return r.str("endTime") }
func (r AppointmentRequest) ContactID() string  { return r.str("contactId") }
func (r AppointmentRequest) Title() string      { return r.str("title") }

// BookingResult is the remote create-appointment response, verbatim.
type BookingResult struct {
	Status  int
	Body    []byte
	EndTime string
}

// BookAppointment validates req, fills in endTime when absent, and creates the
// appointment in one remote call. On success the ghost sweep and owner
// notification are handed to the task runner; their outcome never affects the
// result.
func (g *Gateway) BookAppointment(ctx context.Context, req AppointmentRequest) (BookingResult, error) {
	if req.CalendarID() == "" || req.StartTime() == "" || req.ContactID() == "" {
		g.metrics.ObserveBooking("invalid")
		return BookingResult{}, ErrMissingFields
	}

	ctx, span := tracer.Start(ctx, "booking.book_appointment")
	defer span.End()
	span.SetAttributes(
		attribute.String("calendar.id", req.CalendarID()),
		attribute.String("contact.id", req.ContactID()),
	)

	endTime := req.EndTime()
	if endTime == "" {
		resolved, err := scheduling.ResolveEndTime(req.StartTime(), g.cfg.Duration)
		if err != nil {
			g.metrics.ObserveBooking("invalid")
			return BookingResult{}, err
		}
		endTime = resolved
	}

	payload := make(map[string]any, len(req)+2)
	for k, v := range req {
		payload[k] = v
	}
	payload["endTime"] = endTime
	payload["locationId"] = g.cfg.LocationID

	res, err := g.api.CreateAppointment(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create appointment failed")
		g.metrics.ObserveBooking("failed")
		return BookingResult{}, err
	}
	span.SetAttributes(attribute.Int("http.status_code", res.Status))

	if !res.OK() {
		g.metrics.ObserveBooking("rejected")
		return BookingResult{Status: res.Status, Body: res.Body, EndTime: endTime}, nil
	}

	g.metrics.ObserveBooking("booked")
	g.logger.Info("appointment booked", "calendar_id", req.CalendarID(), "contact_id", req.ContactID(), "status", res.Status)
	g.afterBooking(req, endTime, res.Body)
	return BookingResult{Status: res.Status, Body: res.Body, EndTime: endTime}, nil
}

func (g *Gateway) afterBooking(req AppointmentRequest, endTime string, body []byte) {
	if g.runner == nil {
		return
	}
	if g.sweeper != nil {
		locationID := g.cfg.LocationID
		g.runner.Submit("ghost_sweep", func(ctx context.Context) {
			g.sweeper.Sweep(ctx, locationID)
		})
	}
	if g.notifier != nil {
		b := notify.Booking{
			AppointmentID: appointmentID(body),
			CalendarID:    req.CalendarID(),
			ContactID:     req.ContactID(),
			Title:         req.Title(),
			StartTime:     req.StartTime(),
			EndTime:       endTime,
		}
		g.runner.Submit("booking_notification", func(ctx context.Context) {
			if err := g.notifier.NotifyBooking(ctx, b); err != nil {
				g.logger.Warn("booking notification failed", "error", err, "contact_id", b.ContactID)
			}
		})
	}
}

func appointmentID(body []byte) string {
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.ID
}

// String renders the config for startup logs.
func (c Config) String() string {
	return fmt.Sprintf("calendar=%s location=%s duration=%s", c.CalendarID, c.LocationID, c.Duration)
}
