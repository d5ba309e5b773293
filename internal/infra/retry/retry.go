package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/vietddude/placefinder/internal/metrics"
)

// Policy defines retry behavior.
type Policy struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	RetryableKinds    []Kind        `yaml:"-"`
}

// DefaultPolicy gives delays of 1s and 2s between three attempts.
var DefaultPolicy = Policy{
	MaxAttempts:       3,
	BaseDelay:         1 * time.Second,
	BackoffMultiplier: 2.0,
	RetryableKinds:    []Kind{KindRateLimited, KindUnavailable},
}

// Retryable reports whether errors of kind k are retried under this policy.
func (p Policy) Retryable(k Kind) bool {
	for _, rk := range p.RetryableKinds {
		if rk == k {
			return true
		}
	}
	return false
}

// Delay returns the sleep after a failed attempt (1-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1)))
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Executor runs fallible operations under a Policy.
type Executor struct {
	name   string
	policy Policy
	sleep  SleepFunc
}

// NewExecutor creates an executor. name labels logs and metrics.
func NewExecutor(name string, policy Policy) *Executor {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.RetryableKinds == nil {
		policy.RetryableKinds = DefaultPolicy.RetryableKinds
	}
	return &Executor{name: name, policy: policy, sleep: sleepContext}
}

// WithSleep replaces the sleep function. Used by tests.
func (e *Executor) WithSleep(fn SleepFunc) *Executor {
	e.sleep = fn
	return e
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy { return e.policy }

// Run executes op with exponential backoff.
// Non-retryable errors are returned unchanged on the first occurrence.
func (e *Executor) Run(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%s: aborted after %d attempts: %w: %w", e.name, attempt-1, err, lastErr)
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		kind := Classify(err)
		if !e.policy.Retryable(kind) {
			return err
		}

		if attempt == e.policy.MaxAttempts {
			break
		}

		delay := e.policy.Delay(attempt)
		if deadline, ok := ctx.Deadline(); ok && time.Now().Add(delay).After(deadline) {
			return fmt.Errorf("%s: backoff of %s exceeds deadline: %w: %w", e.name, delay, context.DeadlineExceeded, lastErr)
		}

		metrics.RetryAttempts.WithLabelValues(e.name, kind.String()).Inc()
		slog.Debug("Retrying operation",
			"operation", e.name,
			"attempt", attempt,
			"kind", kind.String(),
			"delay", delay,
			"error", err,
		)

		if err := e.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: aborted during backoff: %w: %w", e.name, err, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w: %w", e.name, e.policy.MaxAttempts, ErrMaxRetriesExceeded, lastErr)
}

// Do runs op through the executor and returns its result.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Run(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
