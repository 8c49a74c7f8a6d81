// Package textfold normalizes text for case- and accent-insensitive comparison.
// Folding is rune-for-rune, so offsets into the folded text are valid offsets
// into the original text.
package textfold

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folded sync.Map // rune -> rune

// Rune lowercases r and strips combining marks ("Í" -> "i").
func Rune(r rune) rune {
	if r < utf8.RuneSelf {
		return unicode.ToLower(r)
	}
	if v, ok := folded.Load(r); ok {
		return v.(rune)
	}
	out := unicode.ToLower(r)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	if s, _, err := transform.String(t, string(r)); err == nil {
		if rs := []rune(s); len(rs) == 1 {
			out = unicode.ToLower(rs[0])
		}
	}
	folded.Store(r, out)
	return out
}

// Runes folds s into a rune slice with the same length as []rune(s).
func Runes(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		out = append(out, Rune(r))
	}
	return out
}

// String folds s.
func String(s string) string {
	return string(Runes(s))
}

// Contains reports whether needle occurs in haystack after folding both.
// An empty needle always matches.
func Contains(haystack, needle string) bool {
	return strings.Contains(String(haystack), String(strings.TrimSpace(needle)))
}

// Equal reports whether a and b are equal after folding and trimming.
func Equal(a, b string) bool {
	return String(strings.TrimSpace(a)) == String(strings.TrimSpace(b))
}
