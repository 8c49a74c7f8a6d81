package budget

// Budget is a snapshot of the completion token budget for one period.
type Budget struct {
	tokensLimit     int
	tokensRemaining int
	isExhausted     bool
	resetsAt        int64 // unix millis
}

// New creates a Budget snapshot. A zero limit means unlimited.
func New(limit, remaining int, isExhausted bool, resetsAt int64) Budget {
	return Budget{
		tokensLimit:     limit,
		tokensRemaining: remaining,
		isExhausted:     isExhausted,
		resetsAt:        resetsAt,
	}
}

// TokensLimit returns the token cap.
func (b Budget) TokensLimit() int { return b.tokensLimit }

// TokensRemaining returns tokens left.
func (b Budget) TokensRemaining() int { return b.tokensRemaining }

// TokensUsed returns tokens spent, or 0 when unlimited.
func (b Budget) TokensUsed() int {
	if b.tokensLimit <= 0 {
		return 0
	}
	return b.tokensLimit - b.tokensRemaining
}

// Unlimited reports whether no cap is configured.
func (b Budget) Unlimited() bool { return b.tokensLimit <= 0 }

// IsExhausted reports whether the budget is spent.
func (b Budget) IsExhausted() bool { return b.isExhausted }

// ResetsAt returns the reset timestamp (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }
