package learnings

import "strings"

// WordOverlapScore implements the local back-end's search scoring rule
// from §4.3: plain word-overlap, not semantic similarity (the hosted
// back-end is the one that does semantic scoring).
func WordOverlapScore(query, text string) float64 {
	queryWords := tokenize(query)
	if len(queryWords) == 0 {
		return 0
	}
	textSet := map[string]bool{}
	for _, w := range tokenize(text) {
		textSet[w] = true
	}

	matches := 0
	for _, w := range queryWords {
		if textSet[w] {
			matches++
		}
	}
	return float64(matches) / float64(len(queryWords))
}

func tokenize(s string) []string {
	lower := strings.ToLower(s)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}

// KeywordOverlapCount is the figure-matching rule from §4.5: scenes
// match a figure when at least 2 keywords overlap.
func KeywordOverlapCount(a, b []string) int {
	set := map[string]bool{}
	for _, w := range a {
		set[strings.ToLower(w)] = true
	}
	count := 0
	for _, w := range b {
		if set[strings.ToLower(w)] {
			count++
		}
	}
	return count
}
