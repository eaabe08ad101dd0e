package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

// do runs fn through DoVal for tests that only care about the error.
func do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	err := do(context.Background(), fastConfig(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("temporary"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	err := do(context.Background(), fastConfig(2), func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("always fails"), 500)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_NonTransientError_NoRetry(t *testing.T) {
	var calls int
	err := do(context.Background(), fastConfig(3), func(_ context.Context) error {
		calls++
		return errors.New("permanent error: bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call for non-transient error, got %d", calls)
	}
}

func TestDo_RetryUnlessPermanent(t *testing.T) {
	var calls int
	cfg := fastConfig(2)
	cfg.ShouldRetry = RetryUnlessPermanent

	err := do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errors.New("selector matched nothing")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls for an unclassified error, got %d", calls)
	}

	calls = 0
	err = do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return StatusError(404, "https://example.com/cal")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call for a 404, got %d", calls)
	}
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	cfg := RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 50 * time.Millisecond,
		ShouldRetry:    RetryUnlessPermanent,
	}

	err := do(ctx, cfg, func(_ context.Context) error {
		if calls.Add(1) == 1 {
			cancel()
		}
		return errors.New("failing")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call after cancellation, got %d", calls.Load())
	}
}

func TestDo_OnAttemptCallback(t *testing.T) {
	var got []Attempt
	cfg := fastConfig(2)
	cfg.ShouldRetry = RetryUnlessPermanent
	cfg.OnAttempt = func(a Attempt) { got = append(got, a) }

	_ = do(context.Background(), cfg, func(_ context.Context) error {
		return errors.New("boom")
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 attempts reported, got %d", len(got))
	}
	if got[0].Number != 1 || !got[0].WillRetry || got[0].Err == nil {
		t.Errorf("unexpected first attempt: %+v", got[0])
	}
	if got[1].Number != 2 || got[1].WillRetry {
		t.Errorf("unexpected last attempt: %+v", got[1])
	}
}

func TestDo_OnAttemptReportsSuccess(t *testing.T) {
	var got []Attempt
	cfg := fastConfig(2)
	cfg.OnAttempt = func(a Attempt) { got = append(got, a) }

	if err := do(context.Background(), cfg, func(_ context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Err != nil || got[0].WillRetry {
		t.Errorf("unexpected attempts: %+v", got)
	}
}

func TestDoVal_CancelledDuringBackoffReportsFinalAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []Attempt
	cfg := RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Second,
		ShouldRetry:    RetryUnlessPermanent,
		OnAttempt: func(a Attempt) {
			got = append(got, a)
			if a.WillRetry {
				cancel()
			}
		},
	}

	start := time.Now()
	_, err := DoVal(ctx, cfg, func(_ context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancellation should cut the backoff short")
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %+v", got)
	}
	if !got[0].WillRetry {
		t.Errorf("first notification should announce a retry: %+v", got[0])
	}
	if got[1].Number != 1 || got[1].WillRetry || got[1].Err == nil {
		t.Errorf("final notification should close attempt 1 as failed: %+v", got[1])
	}
}

func TestDoVal_ReturnsValueOnSuccess(t *testing.T) {
	val, err := DoVal(context.Background(), fastConfig(2), func(_ context.Context) ([]string, error) {
		return []string{"AAPL"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(val) != 1 || val[0] != "AAPL" {
		t.Errorf("unexpected value %v", val)
	}
}

func TestDoVal_ReturnsZeroOnFailure(t *testing.T) {
	val, err := DoVal(context.Background(), fastConfig(2), func(_ context.Context) ([]string, error) {
		return []string{"partial"}, NewTransientError(errors.New("fail"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if val != nil {
		t.Errorf("expected zero value, got %v", val)
	}
}

func TestDo_DefaultConfig(t *testing.T) {
	var calls atomic.Int32
	err := do(context.Background(), RetryConfig{}, func(_ context.Context) error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := applyDefaults(RetryConfig{JitterFraction: -1})
	if cfg.MaxAttempts != 2 {
		t.Errorf("expected 2 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", cfg.InitialBackoff)
	}
	if cfg.JitterFraction != 0 {
		t.Errorf("expected jitter clamped to 0, got %v", cfg.JitterFraction)
	}
}

func TestComputeBackoff_ExponentialGrowth(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
	})

	expected := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	for i, want := range expected {
		if d := computeBackoff(i, cfg); d != want {
			t.Errorf("attempt %d: expected %v, got %v", i, want, d)
		}
	}
}

func TestComputeBackoff_CapsAtMax(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     3 * time.Second,
		Multiplier:     10,
	})
	if d := computeBackoff(4, cfg); d != 3*time.Second {
		t.Errorf("expected cap of 3s, got %v", d)
	}
}

func TestComputeBackoff_WithJitter(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		JitterFraction: 0.5,
	})
	for range 50 {
		d := computeBackoff(0, cfg)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered delay %v outside [50ms,150ms]", d)
		}
	}
}

func TestFromRetryConfig(t *testing.T) {
	cfg := FromRetryConfig(1, 250, 2000)
	if cfg.MaxAttempts != 2 {
		t.Errorf("expected 2 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.InitialBackoff)
	}
	if cfg.MaxBackoff != 2*time.Second {
		t.Errorf("expected 2s, got %v", cfg.MaxBackoff)
	}

	if single := FromRetryConfig(0, 0, 0); single.MaxAttempts != 1 {
		t.Errorf("expected single attempt, got %d", single.MaxAttempts)
	}
	if def := FromRetryConfig(-1, 0, 0); def.MaxAttempts != 2 {
		t.Errorf("expected default attempts, got %d", def.MaxAttempts)
	}
}
