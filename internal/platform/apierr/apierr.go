package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failure that already knows how it should be rendered over HTTP.
// Message is the caller-facing text; Err stays server-side.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

const genericMessage = "An error occurred processing your message. Please try again."

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// PublicMessage never leaks internal error text for 5xx.
func (e *Error) PublicMessage() string {
	if e == nil {
		return genericMessage
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Status >= 500 || e.Status == 0 {
		return genericMessage
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return http.StatusText(e.Status)
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Public builds an error whose caller-facing text is msg.
func Public(status int, code, msg string, err error) *Error {
	return &Error{Status: status, Code: code, Message: msg, Err: err}
}

// As extracts an *Error from err, wrapping anything else as a 500.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, "internal_error", err)
}
