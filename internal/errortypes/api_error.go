package errortypes

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable category of a resource operation failure.
type Kind string

// The closed set of kinds a resource operation may fail with.
const (
	KindNotFound   Kind = "NOT_FOUND"
	KindInvalidURI Kind = "INVALID_URI"
)

// APIError is the typed failure value returned by every resource operation.
type APIError struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Is reports whether target is an APIError of the same kind, so that
// errors.Is(err, &APIError{Kind: KindNotFound}) works on wrapped errors.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewAPIError creates an APIError with an explicit kind, message and status.
func NewAPIError(kind Kind, message string, statusCode int) *APIError {
	return &APIError{Kind: kind, Message: message, StatusCode: statusCode}
}

// NotFound reports that id does not exist in collection.
func NotFound(collection, id string) *APIError {
	return NewAPIError(KindNotFound, fmt.Sprintf("%s with id %s not found", collection, id), http.StatusNotFound)
}

// InvalidURI reports a resource locator that does not have the expected shape.
func InvalidURI(uri string) *APIError {
	return NewAPIError(KindInvalidURI, fmt.Sprintf("invalid resource URI: %q", uri), http.StatusBadRequest)
}

// AsAPIError extracts the APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" when err carries no APIError.
func KindOf(err error) Kind {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Kind
	}
	return ""
}

// StatusCodeOf returns the status hint carried by err. Errors outside the
// taxonomy map to 500.
func StatusCodeOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.StatusCode
	}
	if IsValidationError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if an error is a NOT_FOUND resource error
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsInvalidURI checks if an error is an INVALID_URI resource error
func IsInvalidURI(err error) bool {
	return KindOf(err) == KindInvalidURI
}
