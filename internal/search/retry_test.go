package search

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestDoRetriesTransientFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{MaxAttempts: 5, Delay: time.Millisecond}, "test", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &StatusError{Provider: "fake", Op: "nearby", Code: http.StatusServiceUnavailable}
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got != 42 || calls != 3 {
		t.Fatalf("got %d after %d calls, want 42 after 3", got, calls)
	}
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 5, Delay: time.Millisecond}, "test", func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, &StatusError{Provider: "fake", Op: "text", Code: http.StatusTooManyRequests}
	})
	if !IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls != 5 {
		t.Fatalf("expected 5 attempts, got %d", calls)
	}
}

func TestDoFailsImmediatelyOnPermanentError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"forbidden", &StatusError{Provider: "fake", Op: "phone", Code: http.StatusForbidden}},
		{"bad request", &StatusError{Provider: "fake", Op: "phone", Code: http.StatusBadRequest}},
		{"malformed", Malformed("fake", "phone", errors.New("unexpected EOF"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := Do(context.Background(), Policy{MaxAttempts: 5, Delay: time.Millisecond}, "test", func(context.Context) (int, error) {
				calls++
				return 0, tt.err
			})
			if !errors.Is(err, tt.err) && err != tt.err {
				t.Fatalf("expected original error, got %v", err)
			}
			if calls != 1 {
				t.Fatalf("expected a single attempt, got %d", calls)
			}
		})
	}
}

func TestDoHonoursCancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 5, Delay: time.Hour}, "test", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, &StatusError{Provider: "fake", Op: "nearby", Code: http.StatusBadGateway}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one call before cancellation, got %d", calls)
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Provider: "google", Op: "nearby", Code: 503, Body: " overloaded "}
	if got := err.Error(); got != "google nearby: status 503 Service Unavailable: overloaded" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(Malformed("google", "text", nil), ErrMalformed) {
		t.Fatal("expected Malformed to wrap ErrMalformed")
	}
}
