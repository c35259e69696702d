package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"imaged/internal/engine"
	"imaged/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeEngineError maps engine error classes onto HTTP statuses. Not-ready and
// missing-dependency conditions are 503 so callers can distinguish "try later"
// from "fix your request".
func writeEngineError(w http.ResponseWriter, r *http.Request, op string, err error, start time.Time) {
	// Client gone or server shutting down: nothing useful to write.
	if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
		return
	}
	status := http.StatusInternalServerError
	switch {
	case engine.IsNotLoaded(err), engine.IsDependencyUnavailable(err):
		status = http.StatusServiceUnavailable
	case engine.IsInvalidRequest(err), engine.IsUnsupportedMode(err):
		status = http.StatusBadRequest
	default:
		if he, ok := err.(HTTPError); ok {
			status = he.StatusCode()
		}
	}
	writeJSONError(w, status, err.Error())
	logRequestEnd(r, op, status, start)
}
