package contacts

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/ghl-booking-gateway/internal/ghl"
	"github.com/wolfman30/ghl-booking-gateway/internal/observability/metrics"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

var tracer = otel.Tracer("ghl.gateway.contacts")

// ContactAPI is the slice of the GHL client the reconciler needs.
type ContactAPI interface {
	SearchContactByEmail(ctx context.Context, locationID, email string) (string, error)
	CreateContact(ctx context.Context, payload ghl.ContactPayload) (ghl.Result, error)
	UpdateContact(ctx context.Context, id string, payload ghl.ContactPayload) (ghl.Result, error)
}

// Resolution identifies the contact a submission ended up on.
type Resolution struct {
	ContactID string
	Created   bool
}

// Reconciler finds or creates the contact for a form submission, keyed on
// exact email match.
type Reconciler struct {
	api        ContactAPI
	locationID string
	fields     FieldMap
	lock       SubmissionLock
	logger     *logging.Logger
	metrics    *metrics.GatewayMetrics
}

// NewReconciler creates a reconciler for one location. A nil lock means
// NoopLock.
func NewReconciler(api ContactAPI, locationID string, fields FieldMap, lock SubmissionLock, logger *logging.Logger, m *metrics.GatewayMetrics) *Reconciler {
	if lock == nil {
		lock = NoopLock{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		api:        api,
		locationID: locationID,
		fields:     fields,
		lock:       lock,
		logger:     logger,
		metrics:    m,
	}
}

// Resolve searches by email first and updates on a hit. On a miss it creates
// the contact; when the create is rejected as a duplicate of a contact the
// search did not find, that contact is updated instead. Any other rejection
// is returned as *ghl.RemoteError.
func (r *Reconciler) Resolve(ctx context.Context, form Form) (Resolution, error) {
	ctx, span := tracer.Start(ctx, "contacts.resolve")
	defer span.End()

	if err := form.Validate(); err != nil {
		return Resolution{}, err
	}
	email := strings.TrimSpace(form.Email)
	form.Email = email

	release, err := r.lock.Acquire(ctx, email)
	switch {
	case errors.Is(err, ErrSubmissionInFlight):
		r.metrics.ObserveContact("in_flight")
		return Resolution{}, err
	case err != nil:
		r.logger.Warn("submission lock unavailable, continuing unlocked", "error", err)
	default:
		defer release()
	}

	payload := BuildPayload(form, r.locationID, r.fields)

	existingID, err := r.api.SearchContactByEmail(ctx, r.locationID, email)
	if err != nil {
		r.logger.Warn("contact search failed, treating as not found", "error", err)
		existingID = ""
	}

	if existingID != "" {
		span.SetAttributes(attribute.String("contact.id", existingID))
		r.update(ctx, existingID, payload)
		r.metrics.ObserveContact("updated")
		return Resolution{ContactID: existingID}, nil
	}

	res, err := r.api.CreateContact(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create contact failed")
		r.metrics.ObserveContact("failed")
		return Resolution{}, err
	}
	if res.OK() {
		id := ghl.ContactIDFromBody(res.Body)
		span.SetAttributes(attribute.String("contact.id", id))
		r.metrics.ObserveContact("created")
		r.logger.Info("contact created", "contact_id", id)
		return Resolution{ContactID: id, Created: true}, nil
	}

	if dupID := ghl.DuplicateContactID(res.Body); dupID != "" {
		span.SetAttributes(attribute.String("contact.id", dupID))
		r.logger.Info("create rejected as duplicate, updating existing contact", "contact_id", dupID, "status", res.Status)
		r.update(ctx, dupID, payload)
		r.metrics.ObserveContact("recovered")
		return Resolution{ContactID: dupID}, nil
	}

	remoteErr := res.Err()
	span.RecordError(remoteErr)
	span.SetStatus(codes.Error, "create contact rejected")
	r.metrics.ObserveContact("failed")
	return Resolution{}, remoteErr
}

// update writes the latest form data onto an existing contact. The contact
// already exists, so a failed update is logged and not surfaced.
func (r *Reconciler) update(ctx context.Context, id string, payload ghl.ContactPayload) {
	res, err := r.api.UpdateContact(ctx, id, payload)
	if err != nil {
		r.logger.Warn("contact update failed", "contact_id", id, "error", err)
		return
	}
	if !res.OK() {
		r.logger.Warn("contact update rejected", "contact_id", id, "status", res.Status)
	}
}
