package errors

import (
	"sort"
)

// MaxSuggestions is the maximum number of suggestions to return.
const MaxSuggestions = 3

// Suggestion represents a suggested correction with its edit distance.
type Suggestion struct {
	Value    string
	Distance int
}

// SuggestSimilar finds names from candidates that are a small edit away from
// target. Matching is case sensitive, as identifiers are.
func SuggestSimilar(target string, candidates []string) []Suggestion {
	if len(target) == 0 || len(candidates) == 0 {
		return nil
	}
	threshold := 3
	if len(target) <= 3 {
		threshold = 1
	} else if len(target) <= 5 {
		threshold = 2
	}
	seen := map[string]bool{}
	var suggestions []Suggestion
	for _, candidate := range candidates {
		if candidate == "" || candidate == target || seen[candidate] {
			continue
		}
		seen[candidate] = true
		if dist := levenshteinDistance(target, candidate); dist <= threshold {
			suggestions = append(suggestions, Suggestion{Value: candidate, Distance: dist})
		}
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Distance != suggestions[j].Distance {
			return suggestions[i].Distance < suggestions[j].Distance
		}
		return suggestions[i].Value < suggestions[j].Value
	})
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}

// FormatSuggestions formats suggestions as a user-friendly string.
// Returns empty string if no suggestions.
func FormatSuggestions(suggestions []Suggestion) string {
	switch len(suggestions) {
	case 0:
		return ""
	case 1:
		return "Did you mean: '" + suggestions[0].Value + "'?"
	}
	s := "Did you mean one of: "
	for i, sug := range suggestions {
		if i > 0 {
			s += ", "
		}
		s += "'" + sug.Value + "'"
	}
	return s + "?"
}

// levenshteinDistance computes the edit distance between two strings using
// two rows instead of a full matrix.
func levenshteinDistance(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) > len(br) {
		ar, br = br, ar
	}
	if len(ar) == 0 {
		return len(br)
	}
	prev := make([]int, len(ar)+1)
	curr := make([]int, len(ar)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(br); j++ {
		curr[0] = j
		for i := 1; i <= len(ar); i++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ar)]
}
