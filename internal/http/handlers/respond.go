package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

const (
	msgMethodNotAllowed = "Method not allowed"
	msgServerConfig     = "Server configuration error"
	msgInvalidJSON      = "Invalid JSON body"
	msgBodyTooLarge     = "Request body too large"
	msgUpstreamFailed   = "upstream request failed"
)

// Credentials reports, per request, whether the GHL credentials are set.
// *config.Config satisfies it.
type Credentials interface {
	HasAPIKey() bool
	HasCredentials() bool
}

type errorBody struct {
	Error string `json:"error"`
}

type contactBody struct {
	Success   bool   `json:"success"`
	ContactID string `json:"contactId,omitempty"`
	Error     string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeRaw passes an upstream status and body through untouched.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// decodeBody reads a size-capped JSON body into v. An empty body decodes as
// an empty object.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) (int, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err == nil {
		return 0, "", true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, msgBodyTooLarge, false
	}
	return http.StatusBadRequest, msgInvalidJSON, false
}
