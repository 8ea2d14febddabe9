package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wolfman30/ghl-booking-gateway/internal/booking"
	"github.com/wolfman30/ghl-booking-gateway/internal/scheduling"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

// AppointmentService books appointments.
type AppointmentService interface {
	BookAppointment(ctx context.Context, req booking.AppointmentRequest) (booking.BookingResult, error)
}

// AppointmentHandler serves appointment creation.
type AppointmentHandler struct {
	service AppointmentService
	creds   Credentials
	logger  *logging.Logger
}

// NewAppointmentHandler creates an appointment handler.
func NewAppointmentHandler(service AppointmentService, creds Credentials, logger *logging.Logger) *AppointmentHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentHandler{service: service, creds: creds, logger: logger}
}

// CreateAppointment handles POST /api/create-appointment.
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	if h.creds == nil || !h.creds.HasCredentials() {
		writeError(w, http.StatusInternalServerError, msgServerConfig)
		return
	}

	var req booking.AppointmentRequest
	if status, msg, ok := decodeBody(w, r, &req); !ok {
		writeError(w, status, msg)
		return
	}

	res, err := h.service.BookAppointment(r.Context(), req)
	switch {
	case err == nil:
		writeRaw(w, res.Status, res.Body)
	case errors.Is(err, booking.ErrMissingFields):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduling.ErrInvalidTimestamp):
		writeError(w, http.StatusBadRequest, "startTime is not a valid ISO-8601 timestamp")
	default:
		h.logger.Error("create appointment failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgUpstreamFailed)
	}
}
