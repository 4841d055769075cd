package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/httpx"
)

type ErrorKind string

const (
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindAuthFailed       ErrorKind = "auth_failed"
	KindMalformedRequest ErrorKind = "malformed_request"
	KindOther            ErrorKind = "other"
)

// Error is the only error type Send returns. Message is safe to show to end users.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "gateway: <nil error>"
	}
	return fmt.Sprintf("gateway %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	status := httpx.StatusCode(err)
	switch {
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return &Error{Kind: KindCapacityExceeded, StatusCode: status, Err: err,
			Message: "AI service rate limit or credit limit reached. Please try again later."}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindAuthFailed, StatusCode: status, Err: err,
			Message: "AI service authentication failed. Please try again later."}
	case status == http.StatusBadRequest:
		return &Error{Kind: KindMalformedRequest, StatusCode: status, Err: err,
			Message: "AI service could not process this request. Please try again."}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindOther, StatusCode: status, Err: err,
			Message: "AI service took too long to respond. Please try again."}
	default:
		return &Error{Kind: KindOther, StatusCode: status, Err: err,
			Message: "AI service is temporarily unavailable. Please try again."}
	}
}

// Unavailable maps a failed call to a 503, surfacing the classified message when there is one.
func Unavailable(err error) error {
	var ge *Error
	if errors.As(err, &ge) {
		return apierr.Public(http.StatusServiceUnavailable, "ai_unavailable", ge.Message, err)
	}
	return apierr.New(http.StatusServiceUnavailable, "ai_unavailable", err)
}
