package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"secureguard/internal/domain"
	obsmw "secureguard/internal/observability/middleware"
)

const maxBodyBytes = 1 << 20

var (
	errMalformedBody = fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidRequest)
	errInvalidLimit  = fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrInvalidRequest)
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errMalformedBody
	}
	return nil
}

// writeError maps service errors onto HTTP statuses. Ownership failures are
// already reported as not-found by the services. Unexpected errors are logged
// and replaced with a generic body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", append(obsmw.LogAttrs(r.Context()),
			"method", r.Method, "path", r.URL.Path, "error", err)...)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, "email already registered"
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrDeviceNotFound):
		return http.StatusNotFound, "device not found"
	case errors.Is(err, domain.ErrCommandNotFound):
		return http.StatusNotFound, "command not found"
	case errors.Is(err, domain.ErrLocationNotFound):
		return http.StatusNotFound, "no location recorded"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
