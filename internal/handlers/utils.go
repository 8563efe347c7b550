package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/assignhub/apiserver/internal/services"
	"github.com/assignhub/apiserver/internal/store"
	"github.com/assignhub/apiserver/types"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// identityFromContext returns the authenticated identity injected by
// the auth middleware.
func identityFromContext(ctx context.Context) (types.Identity, error) {
	identity, ok := ctx.Value(contextIdentityKey).(types.Identity)
	if !ok || identity.ID < 1 {
		return types.Identity{}, errors.New("missing identity")
	}
	return identity, nil
}

// ErrorResponse is the error payload. Message is user-facing; Error
// carries low-level diagnostic text on server failures.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// MessageResponse is a plain acknowledgment payload.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// writeServiceError maps the service error taxonomy onto HTTP status
// codes. Anything unrecognized is a 500 carrying the fallback message
// and the underlying error text.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, services.ErrDuplicateUsername):
		writeError(w, http.StatusBadRequest, "username already exists")
	case errors.Is(err, services.ErrNotPending):
		writeError(w, http.StatusBadRequest, "assignment is not pending")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrAdminNotFound):
		writeError(w, http.StatusNotFound, "admin not found")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrAttachmentsDisabled):
		writeError(w, http.StatusServiceUnavailable, "attachments are not enabled")
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Message: fallback,
			Error:   err.Error(),
		})
	}
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "ok"})
}
