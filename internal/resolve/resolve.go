// Package resolve turns user-typed names into canonical identifiers with a
// deterministic precedence ladder, and provides the pipe-delimited argument
// parsing used across the command surface.
package resolve

import (
	"fmt"
	"sort"
	"strings"
)

// RoomHere is the special room argument meaning the actor's current room.
const RoomHere = "here"

// MaxSuggestions caps the "did you mean" list on a failed resolve.
const MaxSuggestions = 5

// StripQuotes removes one layer of matching single or double quotes.
func StripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// StripArticle removes a leading "the", "a", or "an" from a name phrase.
func StripArticle(s string) string {
	lower := strings.ToLower(s)
	for _, art := range []string{"the ", "an ", "a "} {
		if strings.HasPrefix(lower, art) {
			return strings.TrimSpace(s[len(art):])
		}
	}
	return strings.TrimSpace(s)
}

// ParsePipe splits a pipe-delimited argument string into exactly expected
// parts: missing parts come back empty, surplus parts fold into the last.
func ParsePipe(s string, expected int) []string {
	raw := strings.Split(s, "|")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		parts = append(parts, strings.TrimSpace(p))
	}
	if len(parts) > expected && expected > 0 {
		head := parts[:expected-1]
		tail := strings.Join(parts[expected-1:], " | ")
		parts = append(append([]string{}, head...), tail)
	}
	for len(parts) < expected {
		parts = append(parts, "")
	}
	return parts
}

// Resolve maps a query onto one of the candidates. The ladder, each stage
// tried only when the previous one found nothing:
//
//  1. exact equality
//  2. case-insensitive equality (must be unique)
//  3. unique case-insensitive prefix
//  4. unique case-insensitive substring
//
// Ambiguity at any stage is an error listing the contenders; a complete
// miss is an error carrying up to MaxSuggestions nearest candidates by edit
// distance. Candidate order never affects the result.
func Resolve(query string, candidates []string) (string, error) {
	query = StripQuotes(query)
	if query == "" {
		return "", fmt.Errorf("nothing to resolve")
	}
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	for _, c := range sorted {
		if c == query {
			return c, nil
		}
	}

	lq := strings.ToLower(query)
	var ciExact, prefix, substr []string
	for _, c := range sorted {
		lc := strings.ToLower(c)
		switch {
		case lc == lq:
			ciExact = append(ciExact, c)
		case strings.HasPrefix(lc, lq):
			prefix = append(prefix, c)
		case strings.Contains(lc, lq):
			substr = append(substr, c)
		}
	}

	if len(ciExact) == 1 {
		return ciExact[0], nil
	}
	if len(ciExact) > 1 {
		return "", ambiguous(ciExact)
	}
	if len(prefix) == 1 {
		return prefix[0], nil
	}
	if len(prefix) > 1 {
		return "", ambiguous(prefix)
	}
	if len(substr) == 1 {
		return substr[0], nil
	}
	if len(substr) > 1 {
		return "", ambiguous(substr)
	}

	return "", notFound(query, sorted)
}

// ResolveRoom resolves a room argument, honoring the "here" shorthand.
func ResolveRoom(query, currentRoomID string, roomIDs []string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(query), RoomHere) {
		if currentRoomID == "" {
			return "", fmt.Errorf("you are nowhere")
		}
		return currentRoomID, nil
	}
	return Resolve(query, roomIDs)
}

func ambiguous(matches []string) error {
	return fmt.Errorf("ambiguous name; did you mean: %s?", strings.Join(matches, ", "))
}

func notFound(query string, candidates []string) error {
	type scored struct {
		name string
		dist int
	}
	ranked := make([]scored, 0, len(candidates))
	lq := strings.ToLower(query)
	for _, c := range candidates {
		ranked = append(ranked, scored{c, Levenshtein(lq, strings.ToLower(c))})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].dist != ranked[j].dist {
			return ranked[i].dist < ranked[j].dist
		}
		return ranked[i].name < ranked[j].name
	})
	n := len(ranked)
	if n > MaxSuggestions {
		n = MaxSuggestions
	}
	if n == 0 {
		return fmt.Errorf("no match for '%s'", query)
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = ranked[i].name
	}
	return fmt.Errorf("no match for '%s'; did you mean: %s?", query, strings.Join(names, ", "))
}

// Levenshtein computes the edit distance between two strings.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
