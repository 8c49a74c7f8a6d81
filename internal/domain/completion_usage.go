package domain

import "context"

type completionUsageKey struct{}

// CompletionUsage collects LLM token usage for a single HTTP request.
// The handler puts it into the context, the completer adds to it, and the
// handler reads it back for response headers.
type CompletionUsage struct {
	TotalTokens int
	Used        bool // true once a completion was attempted
}

// NewContextWithUsage returns a context with a usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *CompletionUsage) {
	u := &CompletionUsage{}
	return context.WithValue(ctx, completionUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *CompletionUsage {
	u, _ := ctx.Value(completionUsageKey{}).(*CompletionUsage)
	return u
}

// AddTokens records consumed tokens. Safe on a nil receiver.
func (u *CompletionUsage) AddTokens(n int) {
	if u != nil {
		u.TotalTokens += n
		u.Used = true
	}
}
