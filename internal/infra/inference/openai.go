package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/vietddude/placefinder/internal/infra/retry"
)

// Config holds inference service settings.
type Config struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"` // optional, for compatible gateways
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 1024
	defaultTimeout   = 30 * time.Second
)

type chatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAICompleter implements Completer on top of the chat completions API.
type OpenAICompleter struct {
	completions chatCompletions
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAICompleter creates a completer. SDK-level retries are disabled; the
// inference client owns the retry policy.
func NewOpenAICompleter(cfg Config) (*OpenAICompleter, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("inference: api key required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	return newOpenAICompleter(&client.Chat.Completions, cfg), nil
}

func newOpenAICompleter(completions chatCompletions, cfg Config) *OpenAICompleter {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &OpenAICompleter{
		completions: completions,
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// Complete issues one non-streaming completion.
func (o *OpenAICompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	completion, err := o.completions.New(ctx, o.buildParams(p))
	if err != nil {
		return "", classifyOpenAIError(ctx, err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", retry.Wrap(retry.KindInvalidResponse, errors.New("completion has no choices"))
	}
	return completion.Choices[0].Message.Content, nil
}

func (o *OpenAICompleter) buildParams(p Prompt) openai.ChatCompletionNewParams {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(p.Text),
	}
	for _, u := range p.ImageURLs {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: u,
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(o.model),
		MaxCompletionTokens: openai.Int(int64(o.maxTokens)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(parts),
		},
	}
	if o.temperature > 0 {
		params.Temperature = openai.Float(o.temperature)
	}
	return params
}

// classifyOpenAIError tags SDK errors for the retry executor. The SDK error is
// not embedded as-is because its Error method needs the originating request.
// Once ctx is done the caller's context error is returned; a per-attempt
// request timeout under a live ctx is unavailable.
func classifyOpenAIError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(err, ctxErr) {
			return err
		}
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Wrap(retry.KindUnavailable, fmt.Errorf("openai request timed out: %w", err))
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		cause := fmt.Errorf("openai: status %d: %s", apiErr.StatusCode, apiErr.Message)
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return retry.Wrap(retry.KindRateLimited, cause)
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return retry.Wrap(retry.KindUnavailable, cause)
		default:
			return retry.Wrap(retry.KindFatal, cause)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return retry.Wrap(retry.KindUnavailable, err)
	}

	return err
}
