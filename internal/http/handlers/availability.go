package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/ghl-booking-gateway/internal/booking"
	"github.com/wolfman30/ghl-booking-gateway/internal/scheduling"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

const monthLayout = "2006-01"

// AvailabilityService is the read side of the booking gateway.
type AvailabilityService interface {
	GetAvailability(ctx context.Context, q booking.AvailabilityQuery) (booking.AvailabilityResult, error)
	GetMonth(ctx context.Context, calendarID string, year int, month time.Month, timezone string) (booking.MonthResult, error)
}

// AvailabilityHandler serves free-slot lookups.
type AvailabilityHandler struct {
	service AvailabilityService
	creds   Credentials
	logger  *logging.Logger
	now     func() time.Time
}

// NewAvailabilityHandler creates an availability handler.
func NewAvailabilityHandler(service AvailabilityService, creds Credentials, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{service: service, creds: creds, logger: logger, now: time.Now}
}

// GetFreeSlots handles GET /api/get-free-slots. The upstream response is
// relayed verbatim.
func (h *AvailabilityHandler) GetFreeSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	if h.creds == nil || !h.creds.HasAPIKey() {
		writeError(w, http.StatusInternalServerError, msgServerConfig)
		return
	}

	q := r.URL.Query()
	startRaw, endRaw := q.Get("startDate"), q.Get("endDate")
	if startRaw == "" || endRaw == "" {
		writeError(w, http.StatusBadRequest, booking.ErrMissingWindow.Error())
		return
	}
	startMs, errStart := strconv.ParseInt(startRaw, 10, 64)
	endMs, errEnd := strconv.ParseInt(endRaw, 10, 64)
	if errStart != nil || errEnd != nil {
		writeError(w, http.StatusBadRequest, "startDate and endDate must be epoch milliseconds")
		return
	}

	res, err := h.service.GetAvailability(r.Context(), booking.AvailabilityQuery{
		CalendarID: q.Get("calendarId"),
		StartMs:    startMs,
		EndMs:      endMs,
		Timezone:   q.Get("timezone"),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeRaw(w, res.Status, res.Body)
}

// CalendarMonthResponse is the month grid returned by GetCalendarMonth.
type CalendarMonthResponse struct {
	Month         string                `json:"month"`
	Timezone      string                `json:"timezone"`
	StartDate     int64                 `json:"startDate"`
	EndDate       int64                 `json:"endDate"`
	Days          []scheduling.GridCell `json:"days"`
	AvailableDays []scheduling.DayKey   `json:"availableDays"`
}

// GetCalendarMonth handles GET /api/calendar-month?month=YYYY-MM&timezone=...
// The month defaults to the current month in the requested zone.
func (h *AvailabilityHandler) GetCalendarMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	if h.creds == nil || !h.creds.HasAPIKey() {
		writeError(w, http.StatusInternalServerError, msgServerConfig)
		return
	}

	q := r.URL.Query()
	timezone := strings.TrimSpace(q.Get("timezone"))
	loc, err := scheduling.ResolveLocation(timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown timezone")
		return
	}

	monthStart := h.now().In(loc)
	if raw := q.Get("month"); raw != "" {
		parsed, err := time.ParseInLocation(monthLayout, raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		monthStart = parsed
	}

	res, err := h.service.GetMonth(r.Context(), q.Get("calendarId"), monthStart.Year(), monthStart.Month(), timezone)
	if err != nil {
		h.fail(w, err)
		return
	}
	if res.Cells == nil {
		writeRaw(w, res.Status, res.Body)
		return
	}

	available := make([]scheduling.DayKey, 0)
	for _, cell := range res.Cells {
		if cell.Available {
			available = append(available, cell.Day)
		}
	}
	writeJSON(w, http.StatusOK, CalendarMonthResponse{
		Month:         res.Window.Start.Format(monthLayout),
		Timezone:      res.Timezone,
		StartDate:     res.Window.StartMs(),
		EndDate:       res.Window.EndMs(),
		Days:          res.Cells,
		AvailableDays: available,
	})
}

func (h *AvailabilityHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, booking.ErrMissingWindow) || errors.Is(err, booking.ErrInvalidWindow) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("availability lookup failed", "error", err)
	writeError(w, http.StatusInternalServerError, msgUpstreamFailed)
}
