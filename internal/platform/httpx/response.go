// Package httpx holds the JSON response helpers shared by middleware and handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

// MaxBodyBytes bounds request bodies accepted by DecodeJSON.
const MaxBodyBytes = 1 << 20

var errTrailingData = errors.New("request body must contain a single JSON object")

// Error codes carried in ErrorBody.Code.
const (
	CodeInvalidInput     = "invalid_input"
	CodeUnauthenticated  = "unauthenticated"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeUnprocessable    = "unprocessable"
	CodeRateLimited      = "rate_limit_exceeded"
	CodeServiceFailure   = "service_unavailable"
	CodeMethodNotAllowed = "method_not_allowed"
)

// ErrorBody is the uniform error response shape.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes an ErrorBody with the given status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Code: code, Message: message})
}

// DecodeJSON decodes a single JSON object from the request body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}
