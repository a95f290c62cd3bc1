// Package retry provides a bounded retry combinator with pluggable
// backoff, keeping attempt/backoff control flow out of callers'
// critical sections.
package retry

import (
	"context"
	"time"
)

// Policy controls the attempt budget and the delay between attempts
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the first retry
	MaxDelay    time.Duration // cap on the delay; 0 means uncapped
}

// DefaultPolicy matches the booking core's transient-failure budget:
// 3 attempts, 100ms base delay doubling per attempt, capped at 2s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// delayFor returns the exponential delay before retry number n (1-based)
func (p Policy) delayFor(n int) time.Duration {
	delay := p.BaseDelay << uint(n-1)
	if delay < p.BaseDelay {
		delay = p.MaxDelay
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Do runs op up to the policy's attempt budget. After a failed attempt
// it consults retryable; a false answer (validation errors, contention,
// constraint violations) propagates the error immediately. Exhausting
// the budget returns the last error unchanged. Context cancellation
// aborts between attempts.
func Do(ctx context.Context, policy Policy, op func() error, retryable func(error) bool) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-time.After(policy.delayFor(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
