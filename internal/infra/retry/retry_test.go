package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"
	"time"
)

// recordingSleep records requested delays instead of sleeping.
type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err    error
		expect Kind
	}{
		{Wrap(KindRateLimited, errors.New("anything")), KindRateLimited},
		{Wrap(KindInvalidResponse, errors.New("429 in body text")), KindInvalidResponse},
		{errors.New("Too Many Requests"), KindRateLimited},
		{errors.New("daily quota exceeded"), KindRateLimited},
		{errors.New("Service Unavailable"), KindUnavailable},
		{errors.New("model is overloaded"), KindUnavailable},
		{errors.New("connection reset by peer"), KindUnavailable},
		{fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), KindUnavailable},
		{fmt.Errorf("read response: %w", io.EOF), KindUnavailable},
		{&net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, KindUnavailable},
		{fmt.Errorf("post: %w", &url.Error{Op: "Post", URL: "https://api.example.com", Err: context.DeadlineExceeded}), KindUnavailable},
		{errors.New(`invalid character 'x' in payload "id":502,"eof":true`), KindFatal},
		{errors.New("upstream said 503"), KindFatal},
		{errors.New("invalid api key"), KindFatal},
		{context.Canceled, KindFatal},
		{context.DeadlineExceeded, KindFatal},
		{fmt.Errorf("analyze: %w", context.DeadlineExceeded), KindFatal},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.expect {
			t.Errorf("Classify(%q) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy
	if d := p.Delay(1); d != 1*time.Second {
		t.Errorf("expected 1s after first attempt, got %s", d)
	}
	if d := p.Delay(2); d != 2*time.Second {
		t.Errorf("expected 2s after second attempt, got %s", d)
	}
	if d := p.Delay(3); d != 4*time.Second {
		t.Errorf("expected 4s after third attempt, got %s", d)
	}
}

func TestRun_SucceedsAfterTransientFailures(t *testing.T) {
	rs := &recordingSleep{}
	ex := NewExecutor("test", DefaultPolicy).WithSleep(rs.sleep)

	calls := 0
	got, err := Do(context.Background(), ex, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", Wrap(KindUnavailable, errors.New("transient"))
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(rs.delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(rs.delays))
	}
}

func TestRun_RetryBound(t *testing.T) {
	rs := &recordingSleep{}
	policy := Policy{
		MaxAttempts:       3,
		BaseDelay:         100 * time.Millisecond,
		BackoffMultiplier: 3,
	}
	ex := NewExecutor("test", policy).WithSleep(rs.sleep)

	calls := 0
	cause := Wrap(KindRateLimited, errors.New("slow down"))
	err := ex.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return cause
	})

	if calls != 3 {
		t.Errorf("expected exactly 3 calls, got %d", calls)
	}
	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("expected ErrMaxRetriesExceeded, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected last cause to be wrapped, got %v", err)
	}

	var total time.Duration
	for _, d := range rs.delays {
		total += d
	}
	want := policy.BaseDelay + time.Duration(float64(policy.BaseDelay)*policy.BackoffMultiplier)
	if total != want {
		t.Errorf("expected total backoff %s, got %s", want, total)
	}
}

func TestRun_RealSleepElapsed(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond, BackoffMultiplier: 2}
	ex := NewExecutor("test", policy)

	start := time.Now()
	_ = ex.Run(context.Background(), func(ctx context.Context) error {
		return Wrap(KindUnavailable, errors.New("down"))
	})
	elapsed := time.Since(start)

	// 20ms + 40ms
	if elapsed < 60*time.Millisecond {
		t.Errorf("expected at least 60ms of backoff, got %s", elapsed)
	}
	if elapsed > 1*time.Second {
		t.Errorf("backoff took too long: %s", elapsed)
	}
}

func TestRun_NonRetryableStopsImmediately(t *testing.T) {
	rs := &recordingSleep{}
	ex := NewExecutor("test", DefaultPolicy).WithSleep(rs.sleep)

	calls := 0
	cause := Wrap(KindInvalidResponse, errors.New("bad json"))
	err := ex.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return cause
	})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if err != cause {
		t.Errorf("expected the original error, got %v", err)
	}
	if errors.Is(err, ErrMaxRetriesExceeded) {
		t.Error("non-retryable error must not be tagged max retries exceeded")
	}
	if len(rs.delays) != 0 {
		t.Errorf("expected no sleeps, got %v", rs.delays)
	}
}

func TestRun_CancelledContextStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ex := NewExecutor("test", DefaultPolicy).WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})

	calls := 0
	err := ex.Run(ctx, func(ctx context.Context) error {
		calls++
		return Wrap(KindUnavailable, errors.New("down"))
	})

	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun_DeadlineShorterThanBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rs := &recordingSleep{}
	ex := NewExecutor("test", DefaultPolicy).WithSleep(rs.sleep)

	calls := 0
	err := ex.Run(ctx, func(ctx context.Context) error {
		calls++
		return Wrap(KindRateLimited, errors.New("slow down"))
	})

	if calls != 1 {
		t.Errorf("expected no attempt past the deadline, got %d calls", calls)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if len(rs.delays) != 0 {
		t.Errorf("expected no sleep to start, got %v", rs.delays)
	}
}

func TestRun_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := NewExecutor("test", DefaultPolicy)
	calls := 0
	err := ex.Run(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})
	if calls != 0 {
		t.Errorf("expected no calls on a cancelled context, got %d", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
