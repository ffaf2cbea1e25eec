package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vtable/vtable/internal/errs"
)

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("writing json response", "error", err)
	}
}

// errorResponse writes an error JSON response.
func errorResponse(w http.ResponseWriter, status int, kind, message string) {
	jsonResponse(w, status, ErrorResponse{Error: message, Kind: kind})
}

// domainError maps err to a status code by its class.
func (s *Server) domainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	errorResponse(w, status, errs.Kind(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAlreadyExists),
		errors.Is(err, errs.ErrBrokenReference):
		return http.StatusConflict
	case errors.Is(err, errs.ErrUnsatisfiableConstraint),
		errors.Is(err, errs.ErrMissingDefault),
		errors.Is(err, errs.ErrConflictingConstraint):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrMetaParse),
		errors.Is(err, errs.ErrUnknownType),
		errors.Is(err, errs.ErrValidation),
		errors.Is(err, errs.ErrInvalidPage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		errorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return false
	}
	return true
}

// requestLogger is middleware that logs HTTP requests.
func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
