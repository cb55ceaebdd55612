package search

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMalformed marks a provider response that could not be decoded.
var ErrMalformed = errors.New("malformed provider response")

// StatusError reports a non-success response from a provider. Code is the
// HTTP status, or the closest HTTP equivalent for providers that signal
// failures inside a 200 body.
type StatusError struct {
	Provider string
	Op       string
	Code     int
	Status   string
	Body     string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = http.StatusText(e.Code)
	}
	msg := fmt.Sprintf("%s %s: status %d %s", e.Provider, e.Op, e.Code, status)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// Transient reports whether the failure is a rate limit or server error
// that is worth retrying.
func (e *StatusError) Transient() bool {
	switch e.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err wraps a transient *StatusError.
func IsTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	return false
}

// Malformed wraps cause as an ErrMalformed failure for op.
func Malformed(provider, op string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s %s: %w", provider, op, ErrMalformed)
	}
	return fmt.Errorf("%s %s: %w: %v", provider, op, ErrMalformed, cause)
}
