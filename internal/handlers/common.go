package handlers

import (
	"log"
	"net/http"
	"strconv"

	"printbill/internal/httpx"
	"printbill/internal/services"
)

// idParam reads the numeric ?id= query parameter; 0 means absent or invalid.
func idParam(r *http.Request) uint {
	v := r.URL.Query().Get("id")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return uint(n)
}

// actorID identifies who performed the request for the audit trail. The value
// comes from the X-Actor-ID header set by the reverse proxy; 0 means unknown.
func actorID(r *http.Request) uint {
	v := r.Header.Get("X-Actor-ID")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return uint(n)
}

// writeServiceError translates the service error taxonomy to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case *services.NotFoundError:
		httpx.JSONError(w, http.StatusNotFound, "not_found", map[string]any{"entity": e.Entity, "id": e.ID})
	case *services.ValidationError:
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", map[string]any{"fields": e.Fields})
	case *services.ConflictError:
		httpx.JSONError(w, http.StatusConflict, "conflict", map[string]any{"entity": e.Entity, "reason": e.Reason})
	default:
		log.Printf("internal error: %v", err)
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
