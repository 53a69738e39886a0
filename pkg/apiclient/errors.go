package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// FieldViolation is one field-level message of a validation problem.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError represents an error response from the API. The server renders
// errors as RFC 7807 problem documents; Title and Detail carry the
// document's summary and explanation, Violations the per-field messages
// of validation problems.
type APIError struct {
	StatusCode int              `json:"status"`
	Title      string           `json:"title"`
	Detail     string           `json:"detail,omitempty"`
	Violations []FieldViolation `json:"violations,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Title != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	case e.Title != "":
		return e.Title
	case e.Detail != "":
		return e.Detail
	default:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
}

// IsAuthError returns true for authentication and authorization failures.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsNotFound returns true if the requested entity does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsConflict returns true for name collisions, backend conflicts and
// vetoed operations.
func (e *APIError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict
}

// IsValidationError returns true if the request failed metadata
// validation; Violations carries the field messages.
func (e *APIError) IsValidationError() bool {
	return e.StatusCode == http.StatusUnprocessableEntity
}

// parseAPIError builds an APIError from an error response body. Bodies
// that are not problem documents are kept verbatim in Detail.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if json.Unmarshal(body, apiErr) == nil && (apiErr.Title != "" || apiErr.Detail != "") {
		apiErr.StatusCode = statusCode
		return apiErr
	}
	return &APIError{
		StatusCode: statusCode,
		Detail:     string(body),
	}
}
