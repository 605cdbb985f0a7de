package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Second
)

// Policy is a bounded, fixed-delay retry policy. Attempts counts the first
// call, so Attempts=3 means at most two waits of Delay each.
type Policy struct {
	Attempts  uint
	Delay     time.Duration
	Retryable func(error) bool
	OnRetry   func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy returns the policy applied to every outbound model and store call.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		Attempts:  DefaultAttempts,
		Delay:     DefaultDelay,
		Retryable: retryable,
	}
}

// Do runs op until it succeeds, returns a terminal error, ctx is done or the
// attempts are exhausted. Attempts run sequentially on the calling goroutine.
// On failure the zero T is returned together with the last error.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := op(ctx)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(attempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if p.OnRetry != nil {
				p.OnRetry(attempt, err, wait)
			}
		}),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		var zero T
		return zero, err
	}
	return res, nil
}
