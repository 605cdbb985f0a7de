package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned by provider adapters when a remote service answers
// with a non-success HTTP status.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Code, e.Body)
}

// NewStatusError truncates the body so provider error pages don't flood logs.
func NewStatusError(service string, code int, body []byte) *StatusError {
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &StatusError{Service: service, Code: code, Body: string(body)}
}

// IsTransient reports whether a failed upstream call is worth another attempt.
// Timeouts, throttling and 5xx are transient, other 4xx and caller
// cancellation are terminal. Errors without a status (dial failures, resets)
// are treated as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == http.StatusRequestTimeout,
			statusErr.Code == http.StatusTooManyRequests,
			statusErr.Code >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}
	return true
}
