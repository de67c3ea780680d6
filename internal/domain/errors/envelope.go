package errors

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

// ErrorInfo is the error member of the response envelope.
type ErrorInfo struct {
	Code    string `json:"code"` // e.g. "SESSION_NOT_FOUND"
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorInfo builds the error member for a response with the given status.
// Details are dropped for 5xx, 401 and 403 responses and when they are an empty string.
func NewErrorInfo(status int, code, message string, details any) *ErrorInfo {
	if status >= http.StatusInternalServerError || status == http.StatusUnauthorized || status == http.StatusForbidden {
		details = nil
	}
	if s, ok := details.(string); ok && s == "" {
		details = nil
	}

	return &ErrorInfo{Code: code, Message: message, Details: details}
}

// MetaInfo represents response metadata
type MetaInfo struct {
	RequestID string `json:"request_id"`
}

// SuccessResponse defines the structure for successful responses
type SuccessResponse struct {
	Data any       `json:"data"`
	Meta *MetaInfo `json:"meta"`
}

// ErrorResponse defines the structure for error responses
type ErrorResponse struct {
	Error *ErrorInfo `json:"error"`
	Meta  *MetaInfo  `json:"meta"`
}

// Envelope is the decoding side of both responses; Data is left raw for the caller.
type Envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *ErrorInfo      `json:"error"`
	Meta  *MetaInfo       `json:"meta"`
}

// StatusOf returns the HTTP status carried by an AppError anywhere in err's chain.
func StatusOf(err error) (int, bool) {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPCode(), true
	}

	return 0, false
}
