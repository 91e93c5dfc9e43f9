// Package retry provides an explicit retry-with-backoff combinator applied at
// the store-access boundary. Only errors the policy classifies as retryable are
// retried; business rejections pass through untouched.
package retry

import (
	"context"
	"time"
)

type Policy struct {
	InitialDelay time.Duration
	Factor       float64
	MaxDelay     time.Duration
	MaxAttempts  int
	// Retryable classifies errors. Nil means nothing is retried.
	Retryable func(error) bool
}

// DefaultPolicy mirrors the documented backoff: 100ms start, doubling, 10s cap.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		InitialDelay: 100 * time.Millisecond,
		Factor:       2,
		MaxDelay:     10 * time.Second,
		MaxAttempts:  5,
		Retryable:    retryable,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, exhausts the
// attempt budget, or the context is cancelled. The error of the last attempt is
// returned on exhaustion.
func Do(ctx context.Context, p Policy, fn func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Factor <= 1 {
		p.Factor = 2
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 100 * time.Millisecond
	}

	delay := p.InitialDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if attempt >= p.MaxAttempts {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.Factor)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
