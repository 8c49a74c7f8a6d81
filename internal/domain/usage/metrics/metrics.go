package metrics

// Metrics holds LLM completion usage for a time period.
type Metrics struct {
	completionRequests int
	tokens             int
	failures           int
}

// New creates a Metrics snapshot.
func New(requests, tokens, failures int) Metrics {
	return Metrics{completionRequests: requests, tokens: tokens, failures: failures}
}

// CompletionRequests returns the number of completion API calls.
func (m Metrics) CompletionRequests() int { return m.completionRequests }

// Tokens returns the total tokens consumed.
func (m Metrics) Tokens() int { return m.tokens }

// Failures returns how many completion calls failed.
func (m Metrics) Failures() int { return m.failures }
