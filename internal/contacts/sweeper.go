package contacts

import (
	"context"
	"strings"

	"github.com/wolfman30/ghl-booking-gateway/internal/ghl"
	"github.com/wolfman30/ghl-booking-gateway/internal/observability/metrics"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

// DefaultGhostEmail is the address GHL attaches to the placeholder contact it
// creates alongside some bookings.
const DefaultGhostEmail = "gen.gohighlevel@gmail.com"

// GhostAPI is the slice of the GHL client the sweeper needs.
type GhostAPI interface {
	QueryContacts(ctx context.Context, locationID, query string, limit int) ([]ghl.ContactSummary, error)
	DeleteContact(ctx context.Context, id string) (ghl.Result, error)
}

// Sweeper removes the ghost contact after a booking.
type Sweeper struct {
	api     GhostAPI
	email   string
	logger  *logging.Logger
	metrics *metrics.GatewayMetrics
}

// NewSweeper creates a sweeper for the given sentinel email.
func NewSweeper(api GhostAPI, email string, logger *logging.Logger, m *metrics.GatewayMetrics) *Sweeper {
	if strings.TrimSpace(email) == "" {
		email = DefaultGhostEmail
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{api: api, email: email, logger: logger, metrics: m}
}

// Sweep deletes the first contact matching the sentinel email, if its email
// matches exactly. Failures are swallowed.
func (s *Sweeper) Sweep(ctx context.Context, locationID string) {
	ctx, span := tracer.Start(ctx, "contacts.sweep_ghost")
	defer span.End()

	found, err := s.api.QueryContacts(ctx, locationID, s.email, 1)
	if err != nil {
		s.logger.Debug("ghost sweep search failed", "error", err)
		s.metrics.ObserveSweep("failed")
		return
	}
	if len(found) == 0 || found[0].ID == "" || found[0].Email != s.email {
		s.metrics.ObserveSweep("none")
		return
	}

	res, err := s.api.DeleteContact(ctx, found[0].ID)
	if err != nil {
		s.logger.Debug("ghost sweep delete failed", "contact_id", found[0].ID, "error", err)
		s.metrics.ObserveSweep("failed")
		return
	}
	if !res.OK() {
		s.logger.Debug("ghost sweep delete rejected", "contact_id", found[0].ID, "status", res.Status)
		s.metrics.ObserveSweep("failed")
		return
	}
	s.logger.Debug("ghost contact deleted", "contact_id", found[0].ID)
	s.metrics.ObserveSweep("deleted")
}
