package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the uniform failure shape for backend calls. Message is always
// safe to show to the user.
type Error struct {
	Method  string
	Path    string
	Status  int // 0 when no response was received
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %d %s: %v", e.Method, e.Path, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the user-displayable text of err.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericMessage
}

// StatusOf returns the HTTP status to relay for err, defaulting to 502.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status >= 400 {
		return apiErr.Status
	}
	return http.StatusBadGateway
}

// IsUnauthorized reports whether the backend rejected our credentials.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
