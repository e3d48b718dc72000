// Package retry wraps transient operations, storage uploads mostly,
// with bounded attempts and a pluggable backoff curve.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Func is the operation being retried. It must honor ctx.
type Func func(ctx context.Context) error

// RetryIf reports whether err is worth another attempt.
type RetryIf func(error) bool

// Backoff yields the delay before retry number attempt (zero-based).
type Backoff interface {
	Next(attempt int) time.Duration
}

type fixedBackoff time.Duration

func (b fixedBackoff) Next(int) time.Duration { return time.Duration(b) }

// Fixed waits the same interval between every attempt.
func Fixed(interval time.Duration) Backoff {
	return fixedBackoff(interval)
}

type linearBackoff struct {
	base, cap time.Duration
}

func (b linearBackoff) Next(attempt int) time.Duration {
	return clamp(b.base*time.Duration(attempt+1), b.cap)
}

// Linear grows the delay by base per attempt, optionally capped.
func Linear(base time.Duration, cap ...time.Duration) Backoff {
	return linearBackoff{base: base, cap: optCap(cap)}
}

type exponentialBackoff struct {
	base, cap time.Duration
}

func (b exponentialBackoff) Next(attempt int) time.Duration {
	return clamp(b.base<<attempt, b.cap)
}

// Exponential doubles the delay each attempt, optionally capped.
func Exponential(base time.Duration, cap ...time.Duration) Backoff {
	return exponentialBackoff{base: base, cap: optCap(cap)}
}

func optCap(cap []time.Duration) time.Duration {
	if len(cap) > 0 {
		return cap[0]
	}
	return 0
}

func clamp(d, cap time.Duration) time.Duration {
	if cap > 0 && d > cap {
		return cap
	}
	return d
}

// Jitter perturbs a computed delay.
type Jitter func(time.Duration) time.Duration

// NoJitter leaves the delay untouched.
func NoJitter(d time.Duration) time.Duration { return d }

// FullJitter draws a uniform delay from [0, d).
func FullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)))
}

type options struct {
	attempts int
	backoff  Backoff
	jitter   Jitter
	retryIf  RetryIf
}

// Option adjusts retry behavior.
type Option func(*options)

// WithMaxAttempts bounds the total number of calls, first call included.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// WithBackoff selects the delay curve between attempts.
func WithBackoff(b Backoff) Option {
	return func(o *options) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithJitter perturbs each computed delay.
func WithJitter(j Jitter) Option {
	return func(o *options) {
		if j != nil {
			o.jitter = j
		}
	}
}

// WithRetryIf overrides the default retryable-error check.
func WithRetryIf(fn RetryIf) Option {
	return func(o *options) {
		if fn != nil {
			o.retryIf = fn
		}
	}
}

// Do calls fn until it succeeds, the attempt budget is spent, the error
// is deemed non-retryable, or ctx is done. The last error is returned.
func Do(ctx context.Context, fn Func, opts ...Option) error {
	o := options{
		attempts: 3,
		backoff:  Fixed(time.Second),
		jitter:   NoJitter,
		retryIf:  IsRetryableError,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var lastErr error
	for attempt := 0; attempt < o.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !o.retryIf(lastErr) || attempt == o.attempts-1 {
			return lastErr
		}

		if err := sleep(ctx, o.jitter(o.backoff.Next(attempt))); err != nil {
			return err
		}
	}
	return lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRetryableError treats everything except context termination as
// transient.
func IsRetryableError(err error) bool {
	return err != nil &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
