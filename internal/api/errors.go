// Package api provides common HTTP API utilities including the response
// envelope and error handling.
package api

import (
	"encoding/json"
	"net/http"
)

// Deterministic reason codes for stable error classification.
// These codes should remain stable across versions for client compatibility.
const (
	// Authentication and authorization
	ReasonUnauthenticated    = "unauthenticated"
	ReasonForbidden          = "forbidden"
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonTokenExpired       = "token_expired"

	// Rate limiting
	ReasonRateLimited = "rate_limited"

	// Request validation
	ReasonBadRequest   = "bad_request"
	ReasonMissingField = "missing_field"
	ReasonInvalidField = "invalid_field"
	ReasonNotFound     = "not_found"
	ReasonConflict     = "conflict"

	// Invitations
	ReasonInvitationExpired = "invitation_expired"

	// Server errors
	ReasonInternalError = "internal_error"
)

// Envelope is the standard response format. Success responses carry Data
// (and Count for collections); error responses carry Error and ReasonCode.
type Envelope struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Count      *int   `json:"count,omitempty"`
	Error      string `json:"error,omitempty"`
	ReasonCode string `json:"reason_code,omitempty"`
}

// WriteData writes a success envelope with the given payload.
func WriteData(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, Envelope{Success: true, Data: data})
}

// WriteList writes a success envelope with a collection payload and count.
func WriteList(w http.ResponseWriter, status int, data any, count int) {
	writeEnvelope(w, status, Envelope{Success: true, Data: data, Count: &count})
}

// WriteError writes a standardized JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, reasonCode, message string) {
	writeEnvelope(w, statusCode, Envelope{Error: message, ReasonCode: reasonCode})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// Common error helpers for frequently used patterns

// WriteUnauthorized writes a 401 Unauthorized error.
func WriteUnauthorized(w http.ResponseWriter, reasonCode, message string) {
	WriteError(w, http.StatusUnauthorized, reasonCode, message)
}

// WriteForbidden writes a 403 Forbidden error.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, ReasonForbidden, message)
}

// WriteNotFound writes a 404 Not Found error.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ReasonNotFound, message)
}

// WriteBadRequest writes a 400 Bad Request error.
func WriteBadRequest(w http.ResponseWriter, reasonCode, message string) {
	WriteError(w, http.StatusBadRequest, reasonCode, message)
}

// WriteConflict writes a 409 Conflict error.
func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, ReasonConflict, message)
}

// WriteTooManyRequests writes a 429 Too Many Requests error.
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, ReasonRateLimited, message)
}

// WriteInternalError writes a 500 Internal Server Error.
// Be careful not to leak sensitive information in the message.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ReasonInternalError, message)
}
