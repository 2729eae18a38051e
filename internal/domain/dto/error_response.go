package dto

import (
	"time"
)

// ErrorResponse is the standardized JSON error payload returned by all
// API endpoints and error-handling middleware.
//
// Fields:
//   - Message: Human-readable description of what went wrong.
//   - ErrorDetails: Underlying error detail, if any (omitted when empty).
//   - Timestamp: When the error response was created (UTC).
type ErrorResponse struct {
	Message      string    `json:"message" example:"symbol is required"`
	ErrorDetails string    `json:"error,omitempty" example:"sql: no rows in result set"`
	Timestamp    time.Time `json:"timestamp" example:"2025-06-02T14:00:00Z"`
}

// Error implements the error interface so an ErrorResponse can travel
// through code paths that expect a plain error.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails != "" {
		return e.Message + ": " + e.ErrorDetails
	}
	return e.Message
}

// NewErrorResponse builds an ErrorResponse from a message and an optional
// inner error.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}
