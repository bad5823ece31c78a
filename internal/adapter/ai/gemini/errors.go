package gemini

import (
	"errors"
	"fmt"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// FailureClass tags a transport failure for retry decisions.
type FailureClass int

const (
	// FailureUnknown is never produced by the client; it is the zero value.
	FailureUnknown FailureClass = iota
	// FailureConfiguration means the key or endpoint is missing. Nothing was sent.
	FailureConfiguration
	// FailureUnauthorized is an HTTP 401.
	FailureUnauthorized
	// FailureBadRequest is an HTTP 400.
	FailureBadRequest
	// FailureClientError is any other 4xx.
	FailureClientError
	// FailureServerError is a 5xx.
	FailureServerError
	// FailureTransient covers network errors and malformed or empty replies.
	FailureTransient
	// FailureCancelled means the caller's context ended.
	FailureCancelled
)

func (c FailureClass) String() string {
	switch c {
	case FailureConfiguration:
		return "configuration"
	case FailureUnauthorized:
		return "unauthorized"
	case FailureBadRequest:
		return "bad_request"
	case FailureClientError:
		return "client_error"
	case FailureServerError:
		return "server_error"
	case FailureTransient:
		return "transient"
	case FailureCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt may succeed.
func (c FailureClass) Retryable() bool {
	return c == FailureServerError || c == FailureTransient
}

// ClassifiedError is the only error type returned by Client.Call.
type ClassifiedError struct {
	Class  FailureClass
	Status int // HTTP status when one was received
	Msg    string
	Err    error
}

func (e *ClassifiedError) Error() string {
	s := e.Class.String() + ": " + e.Msg
	if e.Status != 0 {
		s = fmt.Sprintf("%s (status %d)", s, e.Status)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

func classified(class FailureClass, status int, msg string, err error) *ClassifiedError {
	return &ClassifiedError{Class: class, Status: status, Msg: msg, Err: err}
}

// ClassOf extracts the failure class of err, or FailureUnknown.
func ClassOf(err error) FailureClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return FailureUnknown
}

// RetryKind is the terminal outcome of a failed orchestrated call.
type RetryKind int

const (
	KindConfiguration RetryKind = iota + 1
	KindInvalidRequest
	KindUnauthorized
	KindExhaustedRetries
	KindCancelled
)

func (k RetryKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindInvalidRequest:
		return "invalid_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindExhaustedRetries:
		return "exhausted_retries"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// RetryError is returned by the orchestrator once it gives up.
// Last is the most recent underlying failure.
type RetryError struct {
	Kind     RetryKind
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	last := "unknown error"
	if e.Last != nil {
		last = e.Last.Error()
	}
	switch e.Kind {
	case KindConfiguration:
		return "gemini api is not configured: " + last
	case KindUnauthorized:
		return "invalid gemini api key, check GEMINI_API_KEY: " + last
	case KindInvalidRequest:
		return "invalid request to gemini api, check the prompt format: " + last
	case KindCancelled:
		return fmt.Sprintf("gemini call cancelled after %d attempt(s): %s", e.Attempts, last)
	default:
		return fmt.Sprintf("gemini api failed after %d attempt(s): %s", e.Attempts, last)
	}
}

// Unwrap exposes the last failure and the matching domain sentinel.
func (e *RetryError) Unwrap() []error {
	errs := []error{e.Last}
	switch e.Kind {
	case KindConfiguration, KindInvalidRequest:
		errs = append(errs, domain.ErrInvalidArgument)
	case KindUnauthorized:
		errs = append(errs, domain.ErrUnauthorized)
	case KindExhaustedRetries:
		errs = append(errs, domain.ErrUpstream)
	}
	return errs
}
