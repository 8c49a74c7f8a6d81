// Package anthropic adapts the Anthropic Messages API to domain.Completer.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/leadsearch/internal/domain"
	"github.com/kailas-cloud/leadsearch/internal/metrics"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 512
)

// Config holds the Anthropic provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// Completer calls the Messages API.
type Completer struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewCompleter creates an Anthropic completion provider.
func NewCompleter(cfg *Config) *Completer {
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		model:  cfg.Model,
		logger: logger,
	}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := req.Temperature

	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:  anthropic.Model(c.model),
		System: req.System,
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(req.User)},
		}},
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})

	duration := time.Since(start)

	if err != nil {
		mapped := parseAPIError(err)
		c.recordError(errorType(mapped))
		c.logger.Warn("completion request failed",
			zap.String("provider", providerName),
			zap.String("model", c.model),
			zap.Duration("duration", duration),
			zap.Error(mapped),
		)
		return domain.CompletionResult{}, mapped
	}

	text := textOf(resp.Content)
	if text == "" {
		c.recordError("empty_response")
		return domain.CompletionResult{}, fmt.Errorf("empty completion response: %w", domain.ErrCompletionProviderError)
	}

	in, out := resp.Usage.InputTokens, resp.Usage.OutputTokens
	metrics.CompletionRequestsTotal.WithLabelValues(providerName, c.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(providerName, c.model).Observe(duration.Seconds())
	metrics.CompletionTokensTotal.WithLabelValues(providerName, c.model, "prompt").Add(float64(in))
	metrics.CompletionTokensTotal.WithLabelValues(providerName, c.model, "completion").Add(float64(out))
	metrics.CompletionTokensTotal.WithLabelValues(providerName, c.model, "total").Add(float64(in + out))

	return domain.CompletionResult{
		Text:             text,
		PromptTokens:     in,
		CompletionTokens: out,
		TotalTokens:      in + out,
	}, nil
}

// HealthCheck reports whether the provider is configured.
// The Messages API has no free endpoint, so no request is sent.
func (c *Completer) HealthCheck(_ context.Context) error {
	if c.model == "" {
		return fmt.Errorf("anthropic model is not configured")
	}
	return nil
}

// Provider returns the provider label.
func (c *Completer) Provider() string { return providerName }

func (c *Completer) recordError(kind string) {
	metrics.CompletionRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
	metrics.CompletionErrorsTotal.WithLabelValues(providerName, c.model, kind).Inc()
}

func textOf(content []anthropic.MessageContent) string {
	var b strings.Builder
	for _, part := range content {
		if part.Text != nil {
			b.WriteString(*part.Text)
		}
	}
	return b.String()
}

// parseAPIError maps client errors to domain errors.
func parseAPIError(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return domain.NewUpstreamError(providerName, statusForType(string(apiErr.Type)), apiErr.Message)
	}

	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode > 0 {
		detail := ""
		if reqErr.Err != nil {
			detail = reqErr.Err.Error()
		}
		return domain.NewUpstreamError(providerName, reqErr.StatusCode, detail)
	}

	return fmt.Errorf("completion request failed: %v: %w", err, domain.ErrCompletionProviderError)
}

// statusForType maps Anthropic error types to their documented HTTP statuses.
func statusForType(t string) int {
	switch t {
	case "invalid_request_error":
		return http.StatusBadRequest
	case "authentication_error":
		return http.StatusUnauthorized
	case "permission_error":
		return http.StatusForbidden
	case "not_found_error":
		return http.StatusNotFound
	case "request_too_large":
		return http.StatusRequestEntityTooLarge
	case "rate_limit_error":
		return http.StatusTooManyRequests
	case "overloaded_error":
		return 529
	default:
		return http.StatusInternalServerError
	}
}

func errorType(err error) string {
	if errors.Is(err, domain.ErrRateLimited) {
		return "rate_limited"
	}
	var up *domain.UpstreamError
	if errors.As(err, &up) {
		return "api_error"
	}
	return "transport"
}
