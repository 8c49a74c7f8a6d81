// Package highlight wraps matched spans of a field value in a highlight marker.
package highlight

import (
	"html"
	"sort"
	"strings"

	"github.com/kailas-cloud/leadsearch/internal/domain/search/result"
)

// Marker wraps highlighted spans.
const (
	OpenTag  = `<mark class="search-highlight">`
	CloseTag = `</mark>`
)

// Apply returns text with the spans matched for key wrapped in OpenTag/CloseTag.
// Unmatched text is copied verbatim. When key has no match or no spans, text is
// returned unchanged. Spans are expected not to overlap.
func Apply(text string, matches []result.FieldMatch, key string) string {
	return render(text, matches, key, func(s string) string { return s })
}

// ApplyHTML is Apply with every text segment HTML-escaped, for markup sent to browsers.
// Text without a match for key is still escaped.
func ApplyHTML(text string, matches []result.FieldMatch, key string) string {
	out := render(text, matches, key, html.EscapeString)
	if out == text {
		return html.EscapeString(text)
	}
	return out
}

func render(text string, matches []result.FieldMatch, key string, escape func(string) string) string {
	spans := spansFor(matches, key)
	if len(spans) == 0 {
		return text
	}

	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text) + len(spans)*(len(OpenTag)+len(CloseTag)))

	last := 0
	for _, s := range spans {
		start, end := s.Start(), s.End()
		if start < last {
			start = last
		}
		if end >= len(runes) {
			end = len(runes) - 1
		}
		if start > end {
			continue
		}
		b.WriteString(escape(string(runes[last:start])))
		b.WriteString(OpenTag)
		b.WriteString(escape(string(runes[start : end+1])))
		b.WriteString(CloseTag)
		last = end + 1
	}
	b.WriteString(escape(string(runes[last:])))
	return b.String()
}

// spansFor returns the spans recorded for key, sorted by start offset.
func spansFor(matches []result.FieldMatch, key string) []result.Span {
	for _, m := range matches {
		if m.Key != key {
			continue
		}
		if len(m.Indices) == 0 {
			return nil
		}
		spans := make([]result.Span, 0, len(m.Indices))
		for _, s := range m.Indices {
			if s.Start() < 0 || s.End() < s.Start() {
				continue
			}
			spans = append(spans, s)
		}
		sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start() < spans[j].Start() })
		return spans
	}
	return nil
}
