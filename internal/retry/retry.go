// Package retry wraps fallible provider calls with bounded exponential
// backoff. The policy is a value so it can be composed and unit-tested
// without real time delays.
package retry

import (
	"context"
	"time"
)

// Policy controls how an operation is retried.
type Policy struct {
	// MaxAttempts bounds the total number of tries, including the first.
	MaxAttempts int
	// Backoff returns the wait before the next try; attempt counts from 0.
	Backoff func(attempt int) time.Duration
	// Retryable decides whether an error is worth another try.
	Retryable func(error) bool
	// Sleep is injectable for tests; nil uses a context-aware timer sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default returns the production policy: three attempts, exponential
// backoff, transient provider errors only.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     ExpBackoff,
		Retryable:   Transient,
	}
}

// ExpBackoff waits 2^attempt+1 seconds: 2s, 3s, 5s, ...
func ExpBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)+1) * time.Second
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt bound is exhausted. It returns the number of attempts made and
// the last error; errors are never swallowed.
func (p Policy) Do(ctx context.Context, op func() error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	attempts := 0
	for {
		attempts++
		err := op()
		if err == nil {
			return attempts, nil
		}
		if attempts >= maxAttempts || !p.retryable(err) {
			return attempts, err
		}
		if sleepErr := p.sleep(ctx, p.backoff(attempts-1)); sleepErr != nil {
			return attempts, sleepErr
		}
	}
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return false
	}
	return p.Retryable(err)
}

func (p Policy) backoff(attempt int) time.Duration {
	if p.Backoff == nil {
		return ExpBackoff(attempt)
	}
	return p.Backoff(attempt)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
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
