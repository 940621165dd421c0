package retry

import (
	"context"
	"time"
)

// Defaults used when a Policy field is zero.
const (
	DefaultMaxAttempts = 5
	DefaultBase        = 1 * time.Second
)

// Policy is a bounded, linearly escalating retry policy.
type Policy struct {
	// MaxAttempts is the total number of attempts, the first one included.
	MaxAttempts int

	// Base is the delay unit; the wait after attempt n is n × Base.
	Base time.Duration
}

// DefaultPolicy returns the 5 attempts / 1s policy.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Base: DefaultBase}
}

// Attempts returns MaxAttempts, or DefaultMaxAttempts when it is not positive.
func (p Policy) Attempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := p.Base
	if base < 0 {
		base = 0
	}
	return time.Duration(attempt) * base
}

// Last reports whether attempt is the final one allowed by the policy.
func (p Policy) Last(attempt int) bool {
	return attempt >= p.Attempts()
}

// SleepFunc blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
