package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals an empty or malformed search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidContact signals a contact that failed validation.
	ErrInvalidContact = errors.New("invalid contact")
	// ErrMissingOwner signals a history request without an owner identity.
	ErrMissingOwner = errors.New("missing history owner")

	// ErrRateLimited signals a rate limit hit, either local or upstream.
	ErrRateLimited = errors.New("rate limited")
	// ErrCompletionQuotaExceeded signals an exhausted completion token budget.
	ErrCompletionQuotaExceeded = errors.New("completion quota exceeded")
	// ErrCompletionProviderError signals a completion provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
)

// UpstreamError carries the HTTP status returned by a remote provider.
// It unwraps to ErrRateLimited for 429 and ErrCompletionProviderError otherwise.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s API error %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Detail)
}

func (e *UpstreamError) Unwrap() error {
	if e.StatusCode == 429 {
		return ErrRateLimited
	}
	return ErrCompletionProviderError
}

// NewUpstreamError creates an upstream provider error.
func NewUpstreamError(provider string, status int, detail string) error {
	return &UpstreamError{Provider: provider, StatusCode: status, Detail: detail}
}
