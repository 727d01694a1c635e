package sync

import "fmt"

// Client-side error codes. Server responses carry their own codes
// (VALIDATION_ERROR, NOT_FOUND, ...) which pass through unchanged.
const (
	CodeNetwork      = "NETWORK_ERROR"
	CodeHTTP         = "HTTP_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
)

// APIError is the uniform error every adapter operation returns. Transport
// failures, unauthorized responses and structured server errors all coerce
// into this one shape.
type APIError struct {
	Code    string
	Message string
	Status  int
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnauthorized reports whether err is an APIError for a rejected token.
func IsUnauthorized(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == CodeUnauthorized
}
