package result

import "github.com/kailas-cloud/leadsearch/internal/domain/contact"

// Span is an inclusive [start, end] rune range inside a field value.
type Span [2]int

// Start returns the first rune offset.
func (s Span) Start() int { return s[0] }

// End returns the last rune offset (inclusive).
func (s Span) End() int { return s[1] }

// FieldMatch lists the matched spans of one field.
type FieldMatch struct {
	Key     string
	Value   string
	Indices []Span
	Score   float64
}

// Result is a single search hit: a contact decorated with its matches and score.
// Lower scores are better; 0 is reserved for unranked passthrough results.
type Result struct {
	contact contact.Contact
	score   float64
	matches []FieldMatch
}

// New creates a search result.
func New(c contact.Contact, score float64, matches []FieldMatch) Result {
	return Result{contact: c, score: score, matches: matches}
}

// Contact returns the matched contact.
func (r *Result) Contact() contact.Contact { return r.contact }

// Score returns the combined match score.
func (r *Result) Score() float64 { return r.score }

// Matches returns the per-field match ranges.
func (r *Result) Matches() []FieldMatch { return r.matches }

// MatchFor returns the match entry for key, if any.
func (r *Result) MatchFor(key string) (FieldMatch, bool) {
	for _, m := range r.matches {
		if m.Key == key {
			return m, true
		}
	}
	return FieldMatch{}, false
}
