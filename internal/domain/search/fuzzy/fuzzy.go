// Package fuzzy ranks records against a free-text query using weighted,
// typo-tolerant substring matching over several fields.
//
// Scores follow the "lower is better" convention: 0.001 is an exact match
// (0 under a zero threshold), 1 is no match at all. A field matches when its score is at or below the
// threshold; the record score combines matched fields by weight and never
// exceeds the threshold.
package fuzzy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/leadsearch/internal/domain/contact"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/result"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/textfold"
)

// MinScore is the floor reported for exact matches. It is capped at the
// threshold, so a threshold of 0 reports exact matches as 0.
const MinScore = 0.001

// Key is a searchable field and its relative weight.
type Key struct {
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// Options configures matching.
type Options struct {
	Threshold          float64
	Keys               []Key
	MinMatchCharLength int
	IgnoreLocation     bool
	Location           int
	Distance           int
}

// DefaultKeys returns the contact field weights.
func DefaultKeys() []Key {
	return []Key{
		{Name: contact.FieldName, Weight: 0.4},
		{Name: contact.FieldEmail, Weight: 0.3},
		{Name: contact.FieldCompany, Weight: 0.2},
		{Name: contact.FieldPhone, Weight: 0.1},
		{Name: contact.FieldTitle, Weight: 0.1},
		{Name: contact.FieldIndustry, Weight: 0.1},
		{Name: contact.FieldLocation, Weight: 0.05},
	}
}

// DefaultOptions returns threshold 0.3, min match length 2, location ignored.
func DefaultOptions() Options {
	return Options{
		Threshold:          0.3,
		Keys:               DefaultKeys(),
		MinMatchCharLength: 2,
		IgnoreLocation:     true,
		Distance:           100,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.Threshold < 0 || o.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %g", o.Threshold)
	}
	if len(o.Keys) == 0 {
		return fmt.Errorf("at least one search key is required")
	}
	for _, k := range o.Keys {
		if k.Name == "" {
			return fmt.Errorf("search key name is required")
		}
		if k.Weight < 0 || math.IsNaN(k.Weight) {
			return fmt.Errorf("weight for key %q must be non-negative", k.Name)
		}
	}
	if o.MinMatchCharLength < 1 {
		return fmt.Errorf("min match length must be at least 1, got %d", o.MinMatchCharLength)
	}
	if o.Distance < 0 || o.Location < 0 {
		return fmt.Errorf("location and distance must be non-negative")
	}
	return nil
}

// Hit is a ranked record: the index into the input slice plus match details.
type Hit struct {
	Index   int
	Score   float64
	Matches []result.FieldMatch
}

// FieldFunc returns the value of field key for item.
type FieldFunc[T any] func(item T, key string) string

// Search ranks items against query.
// A blank query returns every item in input order with score 0 and no matches.
// Otherwise only items whose combined score is within the threshold are
// returned, best first, ties kept in input order.
func Search[T any](items []T, field FieldFunc[T], query string, opts Options) []Hit {
	query = strings.TrimSpace(query)
	if query == "" {
		hits := make([]Hit, len(items))
		for i := range items {
			hits[i] = Hit{Index: i}
		}
		return hits
	}

	m := NewMatcher(query, opts)
	if m.tooShort() {
		return []Hit{}
	}

	totalWeight := 0.0
	for _, k := range opts.Keys {
		totalWeight += k.Weight
	}

	hits := make([]Hit, 0)
	for i, item := range items {
		var matches []result.FieldMatch
		var weighted, matchedWeight float64
		best := math.Inf(1)

		for _, k := range opts.Keys {
			value := field(item, k.Name)
			if value == "" {
				continue
			}
			fm, ok := m.Match(value)
			if !ok {
				continue
			}
			fm.Key = k.Name
			matches = append(matches, fm)
			weighted += k.Weight * fm.Score
			matchedWeight += k.Weight
			best = math.Min(best, fm.Score)
		}
		if len(matches) == 0 {
			continue
		}

		hits = append(hits, Hit{
			Index:   i,
			Score:   combine(weighted, matchedWeight, totalWeight, best),
			Matches: matches,
		})
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score < hits[b].Score })
	return hits
}

// combine averages matched-field scores by weight and rewards coverage of the
// total weight. The result never exceeds the worst matched-field score.
func combine(weighted, matchedWeight, totalWeight, best float64) float64 {
	if matchedWeight <= 0 || totalWeight <= 0 {
		return best
	}
	mean := weighted / matchedWeight
	coverage := matchedWeight / totalWeight
	return mean * (1 - coverage/2)
}

// Matcher scores field values against a fixed query.
type Matcher struct {
	pattern []rune
	opts    Options
}

// NewMatcher prepares a matcher for query.
func NewMatcher(query string, opts Options) *Matcher {
	return &Matcher{pattern: textfold.Runes(strings.TrimSpace(query)), opts: opts}
}

func (m *Matcher) tooShort() bool {
	return len(m.pattern) == 0 || len(m.pattern) < m.opts.MinMatchCharLength
}

// Match scores a single field value. ok is false when the value does not
// match within the threshold or no matched run reaches the minimum length.
func (m *Matcher) Match(value string) (result.FieldMatch, bool) {
	if m.tooShort() {
		return result.FieldMatch{}, false
	}
	text := textfold.Runes(value)

	if idx := indexRunes(text, m.pattern); idx >= 0 {
		raw := m.score(0, idx)
		if raw > m.opts.Threshold {
			return result.FieldMatch{}, false
		}
		score := m.floor(raw)
		span := result.Span{idx, idx + len(m.pattern) - 1}
		return result.FieldMatch{Value: value, Indices: []result.Span{span}, Score: score}, true
	}

	errors, start, matched, ok := m.align(text)
	if !ok {
		return result.FieldMatch{}, false
	}
	raw := m.score(errors, start)
	if raw > m.opts.Threshold {
		return result.FieldMatch{}, false
	}
	score := m.floor(raw)
	spans := toSpans(matched, m.opts.MinMatchCharLength)
	if len(spans) == 0 {
		return result.FieldMatch{}, false
	}
	return result.FieldMatch{Value: value, Indices: spans, Score: score}, true
}

// floor raises raw to MinScore without crossing the threshold.
func (m *Matcher) floor(raw float64) float64 {
	return math.Min(math.Max(MinScore, raw), m.opts.Threshold)
}

// score converts an edit count and start offset into a 0..1 score.
func (m *Matcher) score(errors, start int) float64 {
	accuracy := float64(errors) / float64(len(m.pattern))
	if m.opts.IgnoreLocation {
		return accuracy
	}
	proximity := start - m.opts.Location
	if proximity < 0 {
		proximity = -proximity
	}
	if m.opts.Distance == 0 {
		if proximity == 0 {
			return accuracy
		}
		return 1
	}
	return accuracy + float64(proximity)/float64(m.opts.Distance)
}

// align finds the text substring with the fewest edits against the pattern
// (Sellers' algorithm) and returns the edit count, start offset, and the text
// positions whose runes were matched exactly.
func (m *Matcher) align(text []rune) (errors, start int, matched []bool, ok bool) {
	p := m.pattern
	rows, cols := len(p)+1, len(text)+1
	if len(text) == 0 {
		return 0, 0, nil, false
	}

	d := make([][]int, rows)
	for i := range d {
		d[i] = make([]int, cols)
		d[i][0] = i
	}

	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			cost := 1
			if p[i-1] == text[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j-1]+cost, d[i-1][j]+1, d[i][j-1]+1)
		}
	}

	maxErrors := int(math.Floor(m.opts.Threshold*float64(len(p)) + 1e-9))
	bestEnd, bestScore := -1, math.Inf(1)
	for j := 1; j < cols; j++ {
		e := d[rows-1][j]
		if e > maxErrors {
			continue
		}
		s := m.score(e, max(0, j-len(p)))
		if s < bestScore {
			bestScore, bestEnd = s, j
		}
	}
	if bestEnd < 0 {
		return 0, 0, nil, false
	}

	matched = make([]bool, len(text))
	i, j := rows-1, bestEnd
	for i > 0 {
		switch {
		case j > 0 && p[i-1] == text[j-1] && d[i][j] == d[i-1][j-1]:
			matched[j-1] = true
			i, j = i-1, j-1
		case j > 0 && d[i][j] == d[i-1][j-1]+1:
			i, j = i-1, j-1
		case d[i][j] == d[i-1][j]+1:
			i--
		default:
			j--
		}
	}
	return d[rows-1][bestEnd], j, matched, true
}

// toSpans groups consecutive matched positions into spans of at least minLen runes.
func toSpans(matched []bool, minLen int) []result.Span {
	var spans []result.Span
	start := -1
	for i := 0; i <= len(matched); i++ {
		if i < len(matched) && matched[i] {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minLen {
			spans = append(spans, result.Span{start, i - 1})
		}
		start = -1
	}
	return spans
}

func indexRunes(text, pattern []rune) int {
	n, m := len(text), len(pattern)
	for i := 0; i+m <= n; i++ {
		found := true
		for j := 0; j < m; j++ {
			if text[i+j] != pattern[j] {
				found = false
				break
			}
		}
		if found {
			return i
		}
	}
	return -1
}
