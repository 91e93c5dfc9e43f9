package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultPolicy(isTransient), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	policy := Policy{
		InitialDelay: time.Millisecond,
		Factor:       2,
		MaxDelay:     10 * time.Millisecond,
		MaxAttempts:  5,
		Retryable:    isTransient,
	}

	calls := 0
	err := Do(context.Background(), policy, func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_DoesNotRetryBusinessErrors(t *testing.T) {
	errBusiness := errors.New("conflict")

	calls := 0
	err := Do(context.Background(), DefaultPolicy(isTransient), func() error {
		calls++
		return errBusiness
	})
	if !errors.Is(err, errBusiness) {
		t.Fatalf("expected business error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("business errors must not be retried, got %d calls", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	policy := Policy{
		InitialDelay: time.Millisecond,
		Factor:       2,
		MaxDelay:     5 * time.Millisecond,
		MaxAttempts:  3,
		Retryable:    isTransient,
	}

	calls := 0
	err := Do(context.Background(), policy, func() error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected last transient error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := Policy{
		InitialDelay: time.Hour, // never fires, cancellation must win
		Factor:       2,
		MaxAttempts:  5,
		Retryable:    isTransient,
	}

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, policy, func() error { return errTransient })
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestDo_DelayGrowsAndCaps(t *testing.T) {
	policy := Policy{
		InitialDelay: time.Millisecond,
		Factor:       2,
		MaxDelay:     4 * time.Millisecond,
		MaxAttempts:  5,
		Retryable:    isTransient,
	}

	start := time.Now()
	_ = Do(context.Background(), policy, func() error { return errTransient })
	elapsed := time.Since(start)

	// Delays: 1 + 2 + 4 + 4 = 11ms minimum across 5 attempts.
	if elapsed < 11*time.Millisecond {
		t.Errorf("expected at least 11ms of backoff, got %v", elapsed)
	}
}
