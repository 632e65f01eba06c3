package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tripplanner/api/internal/domain"
)

// ErrorDetail is the body of every non-2xx response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail under an "error" key.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// errorMapping ties a domain sentinel to its HTTP status and code. When
// fixed is set the message never comes from the error text, so upstream
// details stay in the logs.
type errorMapping struct {
	sentinel error
	status   int
	code     string
	fixed    string
}

var errorMappings = []errorMapping{
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation_error", ""},
	{domain.ErrNotFound, http.StatusNotFound, "not_found", ""},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden", ""},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", ""},
	{domain.ErrConflict, http.StatusConflict, "conflict", ""},
	{domain.ErrUpstreamTimeout, http.StatusGatewayTimeout, "upstream_timeout", "upstream service timed out"},
	{domain.ErrUpstreamStore, http.StatusBadGateway, "upstream_store_error", "image store unavailable"},
	{domain.ErrUpstreamMail, http.StatusBadGateway, "upstream_mail_error", "could not send email, please request a new code"},
	{domain.ErrUpstreamSearch, http.StatusBadGateway, "upstream_search_error", "image search unavailable"},
}

// writeError maps err to a status and envelope. Unmapped errors are logged
// and answered with a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.sentinel) {
			continue
		}
		msg := m.fixed
		if msg == "" {
			msg = unwrapMessage(err, m.sentinel)
		} else {
			s.log.WarnContext(r.Context(), "upstream failure", "path", r.URL.Path, "error", err)
		}
		writeJSON(w, m.status, ErrorResponse{Error: ErrorDetail{Code: m.code, Message: msg}})
		return
	}

	s.log.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{Code: "internal_error", Message: "internal server error"}})
}

// requestError answers a request rejected before reaching the service layer
// (e.g. missing or malformed body).
func requestError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: message}})
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.TripService.Get: not found: trip not found" -> "trip not found".
// A bare sentinel falls back to its own text.
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 && i+len(marker) < len(msg) {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON body into dst. Oversized bodies are reported as 413,
// anything else that fails to parse as 422.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: ErrorDetail{Code: "request_too_large", Message: "request body too large"}})
			return false
		}
		requestError(w, "invalid JSON body")
		return false
	}
	return true
}
