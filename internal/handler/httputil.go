// Package handler implements the HTTP surface of the retention service.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matthewbaird/retention/internal/intervention"
	"github.com/matthewbaird/retention/internal/snapshot"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		pkgLog.Warn("writeJSON encode error", "error", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseUUID extracts and validates a UUID path parameter.
func parseUUID(w http.ResponseWriter, r *http.Request, paramName string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, paramName)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid UUID: "+raw)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps domain errors to HTTP responses. Anything not
// recognised is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *intervention.ValidationError
	var te *intervention.TransitionError
	switch {
	case errors.As(err, &ve):
		body := map[string]any{"error": ve.Error(), "code": "VALIDATION_ERROR", "field": ve.Field}
		if len(ve.Valid) > 0 {
			body["valid"] = ve.Valid
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &te):
		allowed := te.Allowed
		if allowed == nil {
			allowed = []intervention.Status{}
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":     te.Error(),
			"code":      "INVALID_TRANSITION",
			"current":   te.Current,
			"requested": te.Requested,
			"allowed":   allowed,
		})
	case errors.Is(err, intervention.ErrMemberNotFound), errors.Is(err, snapshot.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, "MEMBER_NOT_FOUND", err.Error())
	case errors.Is(err, intervention.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, snapshot.ErrInvalid):
		writeError(w, http.StatusBadRequest, "INVALID_SNAPSHOT", err.Error())
	case errors.Is(err, snapshot.ErrNoSnapshot):
		writeError(w, http.StatusConflict, "NO_SNAPSHOT", err.Error())
	default:
		pkgLog.Error("internal error",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
