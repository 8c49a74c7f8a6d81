// Package nlfilter turns free-text search queries into structured filters
// with a chat-completion model.
package nlfilter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/leadsearch/internal/domain"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/leadsearch/internal/metrics"
)

// Status tags the outcome of a parse.
type Status string

const (
	// StatusOK means at least one filter key was extracted.
	StatusOK Status = "ok"
	// StatusEmpty means the model answered but nothing usable was extracted.
	StatusEmpty Status = "empty"
	// StatusDegraded means the model could not be reached or refused the request.
	StatusDegraded Status = "degraded"
	// StatusRateLimited means the provider returned 429.
	StatusRateLimited Status = "rate_limited"
)

// Outcome is the result of a parse. Filter is always usable: on any failure
// it is empty and the search proceeds without extra constraints.
type Outcome struct {
	Filter  filter.Filter
	Status  Status
	Dropped []string
	Err     error
}

// Degraded reports whether the outcome came from a failed completion.
func (o Outcome) Degraded() bool {
	return o.Status == StatusDegraded || o.Status == StatusRateLimited
}

// Config tunes the completion request.
type Config struct {
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultConfig returns temperature 0.1, 512 max tokens and no timeout.
func DefaultConfig() Config {
	return Config{Temperature: 0.1, MaxTokens: 512}
}

// Service parses queries. It keeps no state between calls.
type Service struct {
	completer domain.Completer
	cfg       Config
	prompt    string
	logger    *zap.Logger
}

// New creates a Service.
func New(completer domain.Completer, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{completer: completer, cfg: cfg, prompt: SystemPrompt(), logger: logger}
}

// Parse translates query into a filter. The only returned error is
// domain.ErrInvalidQuery for a blank query; provider failures are reported
// through Outcome.Status and Outcome.Err.
func (s *Service) Parse(ctx context.Context, query string) (Outcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Outcome{}, fmt.Errorf("query is required: %w", domain.ErrInvalidQuery)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	res, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      s.prompt,
		User:        query,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		out := Outcome{Status: StatusDegraded, Err: err}
		if errors.Is(err, domain.ErrRateLimited) {
			out.Status = StatusRateLimited
		}
		s.logger.Warn("filter parse degraded",
			zap.String("status", string(out.Status)),
			zap.Error(err),
		)
		return s.done(out), nil
	}

	return s.done(s.decode(res.Text)), nil
}

func (s *Service) decode(text string) Outcome {
	raw, ok := ExtractJSON(text)
	if !ok {
		s.logger.Debug("no JSON object in completion", zap.Int("length", len(text)))
		return Outcome{Status: StatusEmpty}
	}

	f, dropped, err := filter.Parse([]byte(raw))
	if err != nil {
		s.logger.Debug("completion JSON rejected", zap.Error(err))
		return Outcome{Status: StatusEmpty}
	}
	if len(dropped) > 0 {
		s.logger.Debug("dropped filter keys", zap.Strings("keys", dropped))
	}

	out := Outcome{Filter: f, Status: StatusOK, Dropped: dropped}
	if f.IsEmpty() {
		out.Status = StatusEmpty
	}
	return out
}

func (s *Service) done(out Outcome) Outcome {
	metrics.FilterParseTotal.WithLabelValues(string(out.Status)).Inc()
	return out
}
