package calls

import (
	"errors"
	"net/http"
)

// Error is a domain error with an HTTP status attached. Handlers map these
// to responses without inspecting message text.
type Error struct {
	status  int
	message string
}

func (e *Error) Error() string { return e.message }
func (e *Error) Status() int   { return e.status }

func errInvalid(msg string) *Error   { return &Error{status: http.StatusBadRequest, message: msg} }
func errForbidden(msg string) *Error { return &Error{status: http.StatusForbidden, message: msg} }
func errNotFound(msg string) *Error  { return &Error{status: http.StatusNotFound, message: msg} }
func errConflict(msg string) *Error  { return &Error{status: http.StatusConflict, message: msg} }
func errInternal(msg string) *Error {
	return &Error{status: http.StatusInternalServerError, message: msg}
}
func errUnavailable(msg string) *Error { return &Error{status: http.StatusBadGateway, message: msg} }

// StatusOf extracts the HTTP status from an error, defaulting to 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status()
	}
	return http.StatusInternalServerError
}
