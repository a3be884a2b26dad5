package matching

import (
	"sort"
	"strings"
)

// Set is a set of normalized tokens.
type Set map[string]struct{}

// TokenSet splits a comma separated list into lower-cased, trimmed, unique tokens.
// Empty input and empty tokens are skipped.
func TokenSet(s string) Set {
	set := make(Set)
	for _, token := range strings.Split(s, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}

func (s Set) Len() int {
	return len(s)
}

// Intersect returns tokens present in both sets.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for token := range s {
		if _, ok := other[token]; ok {
			out[token] = struct{}{}
		}
	}
	return out
}

// Sorted returns the tokens in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for token := range s {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}
