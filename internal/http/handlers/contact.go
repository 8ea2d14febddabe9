package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wolfman30/ghl-booking-gateway/internal/contacts"
	"github.com/wolfman30/ghl-booking-gateway/internal/ghl"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

// ContactResolver reconciles a form submission with a contact.
type ContactResolver interface {
	Resolve(ctx context.Context, form contacts.Form) (contacts.Resolution, error)
}

// ContactHandler serves the lead form. Every response uses the
// {success, contactId, error} envelope.
type ContactHandler struct {
	resolver ContactResolver
	creds    Credentials
	logger   *logging.Logger
}

// NewContactHandler creates a contact handler.
func NewContactHandler(resolver ContactResolver, creds Credentials, logger *logging.Logger) *ContactHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ContactHandler{resolver: resolver, creds: creds, logger: logger}
}

// CreateContact handles POST /api/create-contact.
func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, contactBody{Error: msgMethodNotAllowed})
		return
	}
	if h.creds == nil || !h.creds.HasCredentials() {
		writeJSON(w, http.StatusInternalServerError, contactBody{Error: msgServerConfig})
		return
	}

	var form contacts.Form
	if status, msg, ok := decodeBody(w, r, &form); !ok {
		writeJSON(w, status, contactBody{Error: msg})
		return
	}
	if err := form.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, contactBody{Error: "Email is required"})
		return
	}

	res, err := h.resolver.Resolve(r.Context(), form)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, contactBody{Success: true, ContactID: res.ContactID})
}

func (h *ContactHandler) writeResolveError(w http.ResponseWriter, err error) {
	var remote *ghl.RemoteError
	switch {
	case errors.As(err, &remote):
		writeJSON(w, remote.Status, contactBody{Error: string(remote.Body)})
	case errors.Is(err, contacts.ErrEmailRequired):
		writeJSON(w, http.StatusBadRequest, contactBody{Error: "Email is required"})
	case errors.Is(err, contacts.ErrSubmissionInFlight):
		writeJSON(w, http.StatusConflict, contactBody{Error: err.Error()})
	default:
		h.logger.Error("contact reconciliation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, contactBody{Error: msgUpstreamFailed})
	}
}
