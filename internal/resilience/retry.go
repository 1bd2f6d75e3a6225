// Package resilience retries remote fetches that fail transiently.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry attempts and exponential backoff with jitter.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Backoff is the delay before the first retry. It doubles per retry.
	Backoff time.Duration
	// MaxBackoff caps a single delay.
	MaxBackoff time.Duration
	// Jitter spreads each delay by up to this fraction either way.
	Jitter float64
	// ShouldRetry overrides IsTransient when set.
	ShouldRetry func(err error) bool
}

// DefaultPolicy suits FTP downloads of detector output.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    250 * time.Millisecond,
		MaxBackoff: 5 * time.Second,
		Jitter:     0.2,
	}
}

// Retry calls fn until it succeeds, returns a non-transient error, the
// attempts run out or ctx is done. op names the operation in logs.
func Retry[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	retryable := p.ShouldRetry
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || attempt >= p.Attempts || !retryable(err) {
			return zero, err
		}

		delay := p.delay(attempt)
		zap.L().Warn("resilience: retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// delay returns the backoff before retry number attempt (1-based).
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.Backoff) * math.Pow(2, float64(attempt-1))
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}
