package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/placefinder/internal/core/domain"
	"github.com/vietddude/placefinder/internal/infra/retry"
	"github.com/vietddude/placefinder/internal/metrics"
)

var (
	// ErrServiceUnavailable is returned when the service stayed unavailable through all retries.
	ErrServiceUnavailable = errors.New("inference service unavailable")
	// ErrRateLimited is returned when the quota stayed exhausted through all retries.
	ErrRateLimited = errors.New("inference rate limited")
	// ErrInvalidResponse is returned when the reply does not match the expected schema. Never retried.
	ErrInvalidResponse = errors.New("invalid inference response")
)

// Completer sends a prompt to a model and returns its raw text reply.
// Implementations tag transient failures with retry.Wrap so the executor can
// tell rate limits and outages apart from terminal errors.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Client analyzes content snapshots through a Completer.
type Client struct {
	completer Completer
	executor  *retry.Executor
}

// NewClient creates an inference client. A nil executor uses retry.DefaultPolicy.
func NewClient(completer Completer, executor *retry.Executor) *Client {
	if executor == nil {
		executor = retry.NewExecutor("inference", retry.DefaultPolicy)
	}
	return &Client{completer: completer, executor: executor}
}

// Analyze asks the model for places mentioned in the snapshot.
func (c *Client) Analyze(ctx context.Context, snapshot domain.ContentSnapshot) (*domain.InferenceResponse, error) {
	start := time.Now()
	prompt := BuildPrompt(snapshot)

	text, err := retry.Do(ctx, c.executor, func(ctx context.Context) (string, error) {
		return c.completer.Complete(ctx, prompt)
	})
	metrics.InferenceLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		err = mapError(ctx, err)
		metrics.InferenceCalls.WithLabelValues(outcomeLabel(err)).Inc()
		slog.Warn("Inference call failed", "url", snapshot.SourceURL, "error", err)
		return nil, err
	}

	resp, err := ParseResponse(text)
	if err != nil {
		metrics.InferenceCalls.WithLabelValues("invalid_response").Inc()
		slog.Warn("Inference reply rejected", "url", snapshot.SourceURL, "error", err)
		return nil, err
	}

	metrics.InferenceCalls.WithLabelValues("ok").Inc()
	slog.Debug("Inference completed",
		"url", snapshot.SourceURL,
		"candidates", len(resp.Candidates),
		"confidence", resp.Confidence,
		"duration", time.Since(start),
	)
	return resp, nil
}

// mapError converts executor errors into the client's sentinel errors.
// Errors after ctx is done are returned as-is.
func mapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	switch retry.Classify(err) {
	case retry.KindRateLimited:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case retry.KindUnavailable:
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	case retry.KindInvalidResponse:
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	default:
		return fmt.Errorf("inference: %w", err)
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrServiceUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
