// Package history holds the rules of the per-owner search history list.
package history

import "strings"

// DefaultMaxEntries caps the list when no limit is configured.
const DefaultMaxEntries = 10

// Add returns entries with query moved to the front.
// Blank queries leave entries unchanged. Any earlier identical entry is removed
// and the result holds at most max entries. entries is not modified.
func Add(entries []string, query string, max int) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}
	if max <= 0 {
		max = DefaultMaxEntries
	}

	out := make([]string, 0, min(len(entries)+1, max))
	out = append(out, query)
	for _, e := range entries {
		if len(out) == max {
			break
		}
		if e == query {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Normalize trims blanks, removes duplicates keeping the first occurrence and
// truncates to max. Used on lists read back from storage.
func Normalize(entries []string, max int) []string {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, min(len(entries), max))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
		if len(out) == max {
			break
		}
	}
	return out
}
