package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	errTemp := errors.New("temporary error")
	errFatal := errors.New("fatal")

	tests := []struct {
		name      string
		failUntil int
		failWith  error
		retryIf   func(error) bool
		wantCalls int
		wantErr   error
	}{
		{"first attempt", 0, nil, nil, 1, nil},
		{"succeeds on third", 2, errTemp, nil, 3, nil},
		{"exhausts attempts", 10, errTemp, nil, 3, errTemp},
		{"non retryable", 10, errFatal, func(err error) bool { return !errors.Is(err, errFatal) }, 1, errFatal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := ConstantRetryConfig(3, time.Millisecond)
			if tc.retryIf != nil {
				cfg.RetryIf = tc.retryIf
			}
			calls := 0
			got, err := Retry(context.Background(), cfg, func() (string, error) {
				calls++
				if calls <= tc.failUntil {
					return "", tc.failWith
				}
				return "ok", nil
			})

			if calls != tc.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tc.wantCalls)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr == nil && got != "ok" {
				t.Errorf("result = %q", got)
			}
		})
	}
}

func TestRetry_OnRetryReportsConstantBackoff(t *testing.T) {
	var backoffs []time.Duration
	cfg := ConstantRetryConfig(3, 2*time.Millisecond)
	cfg.OnRetry = func(_ int, _ error, d time.Duration) { backoffs = append(backoffs, d) }

	_ = RetryFunc(context.Background(), cfg, func() error { return errors.New("x") })

	if len(backoffs) != 2 {
		t.Fatalf("expected 2 waits, got %v", backoffs)
	}
	for _, d := range backoffs {
		if d != 2*time.Millisecond {
			t.Errorf("backoff = %v, want 2ms", d)
		}
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Retry(ctx, DefaultRetryConfig(), func() (int, error) {
		calls++
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no calls, got %d", calls)
	}
}

func TestBackoffFor(t *testing.T) {
	cfg := withRetryDefaults(RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond})
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := backoffFor(i+1, cfg); got != w {
			t.Errorf("attempt %d: backoff = %v, want %v", i+1, got, w)
		}
	}
}

func TestDefaultRetryIf(t *testing.T) {
	if DefaultRetryIf(context.Canceled) || DefaultRetryIf(context.DeadlineExceeded) {
		t.Error("context errors must not be retried")
	}
	if !DefaultRetryIf(errors.New("boom")) {
		t.Error("plain errors should be retried")
	}
}
