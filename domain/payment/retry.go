package payment

import (
	"context"
	"time"
)

// BackoffFunc returns the pause before the given retry attempt.
// Attempt numbering starts at 1.
type BackoffFunc func(attempt int) time.Duration

// ConstantBackoff returns a backoff function with a fixed pause.
// This is a PURE function.
func ConstantBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// RetryPolicy is a fixed-attempt-count retry with a pause between
// attempts. It is shared by payment confirmation and manual recovery so
// both credit points under the same rules.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffFunc
}

// CreditPolicy is the policy used for point crediting: up to 3 attempts
// with a 1 second pause between them.
func CreditPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: ConstantBackoff(time.Second)}
}

// Do runs fn until it succeeds, attempts are exhausted, or the context is
// cancelled. Attempts run sequentially, never concurrently. The last
// error is returned on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		pause := time.Duration(0)
		if p.Backoff != nil {
			pause = p.Backoff(attempt)
		}
		select {
		case <-time.After(pause):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
