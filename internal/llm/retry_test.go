package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

var errTransient = errors.New("upstream overloaded")

func isErrTransient(err error) bool { return errors.Is(err, errTransient) }

// countingSleep records requested backoff delays instead of waiting for them.
func countingSleep(delays *[]time.Duration) sleepFunc {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	var delays []time.Duration
	calls := 0

	got, err := withRetry(context.Background(), zap.NewNop(), "op", isErrTransient, countingSleep(&delays),
		func() (string, error) {
			calls++
			return "ok", nil
		})
	if err != nil || got != "ok" {
		t.Fatalf("got (%q, %v)", got, err)
	}
	if calls != 1 || len(delays) != 0 {
		t.Errorf("expected 1 call and no backoff, got %d calls, %v", calls, delays)
	}
}

func TestWithRetryBacksOffOnTransient(t *testing.T) {
	var delays []time.Duration
	calls := 0

	got, err := withRetry(context.Background(), zap.NewNop(), "op", isErrTransient, countingSleep(&delays),
		func() (string, error) {
			calls++
			if calls < 3 {
				return "", errTransient
			}
			return "recovered", nil
		})
	if err != nil || got != "recovered" {
		t.Fatalf("got (%q, %v)", got, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(delays) != len(want) || delays[0] != want[0] || delays[1] != want[1] {
		t.Errorf("expected backoff %v, got %v", want, delays)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	calls := 0

	_, err := withRetry(context.Background(), zap.NewNop(), "op", isErrTransient, countingSleep(&delays),
		func() (string, error) {
			calls++
			return "", errTransient
		})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected last transient error, got %v", err)
	}
	if calls != maxAttempts {
		t.Errorf("expected %d calls, got %d", maxAttempts, calls)
	}
	if len(delays) != maxAttempts-1 {
		t.Errorf("expected %d backoffs, got %v", maxAttempts-1, delays)
	}
}

func TestWithRetryDoesNotRetryPermanentErrors(t *testing.T) {
	var delays []time.Duration
	calls := 0
	permanent := errors.New("invalid request")

	_, err := withRetry(context.Background(), zap.NewNop(), "op", isErrTransient, countingSleep(&delays),
		func() (string, error) {
			calls++
			return "", permanent
		})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 || len(delays) != 0 {
		t.Errorf("expected single attempt with no backoff, got %d calls, %v", calls, delays)
	}
}

func TestWithRetryStopsOnCancelledSleep(t *testing.T) {
	calls := 0
	cancelled := func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	_, err := withRetry(context.Background(), zap.NewNop(), "op", isErrTransient, cancelled,
		func() (string, error) {
			calls++
			return "", errTransient
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no further attempts after cancellation, got %d", calls)
	}
}

func TestSleepContextHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("expected nil for elapsed timer, got %v", err)
	}
}
