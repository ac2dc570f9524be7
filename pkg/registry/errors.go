package registry

import (
	"errors"
	"fmt"
)

// ErrorKind classifies registry API failures.
type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindNotFound    ErrorKind = "not_found"
	KindTransient   ErrorKind = "transient"
	KindFatal       ErrorKind = "fatal"
)

// Error is a structured registry API error.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	URL        string
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("registry %s", e.Kind)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" HTTP %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += " " + e.Message
	}
	if e.URL != "" {
		msg += fmt.Sprintf(" url=%s", e.URL)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Kind == KindTransient || e.Kind == KindRateLimited
}

// IsNotFound reports whether err is a registry not-found error.
func IsNotFound(err error) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.Kind == KindNotFound
}

// IsRateLimited reports whether err is a registry rate-limit error.
func IsRateLimited(err error) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.Kind == KindRateLimited
}

// kindForStatus maps an HTTP status code to an error kind.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == 429:
		return KindRateLimited
	case status == 404:
		return KindNotFound
	case status >= 500:
		return KindTransient
	default:
		return KindFatal
	}
}
