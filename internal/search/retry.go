package search

import (
	"context"
	"log/slog"
	"time"

	"placematch/internal/logging"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 200 * time.Millisecond
)

// Policy controls how Do retries a provider call.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Logger      *slog.Logger
}

// DefaultPolicy returns five attempts with a 200ms linear step.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultRetryDelay}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Do runs op, retrying transient failures up to MaxAttempts times. The wait
// after attempt n is n × Delay. Non-transient errors return immediately.
func Do[T any](ctx context.Context, p Policy, name string, op func(context.Context) (T, error)) (T, error) {
	p = p.normalized()
	var zero T
	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !IsTransient(err) || attempt >= p.MaxAttempts {
			return zero, err
		}
		backoff := time.Duration(attempt) * p.Delay
		if p.Logger != nil {
			p.Logger.Warn("provider call failed, retrying",
				logging.String("operation", name),
				logging.Duration("backoff", backoff),
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", p.MaxAttempts),
				logging.Error(err),
				logging.String(logging.FieldEventType, "provider_retry"),
				logging.String(logging.FieldErrorHint, "provider is rate limiting or failing; lower batch concurrency or raise delay"),
			)
		}
		if err := SleepWithContext(ctx, backoff); err != nil {
			return zero, err
		}
	}
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
