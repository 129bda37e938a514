package fuzzy

import (
	"strings"
)

// Field is one searchable text field with its relative weight. Weights
// are relative; ScoreFields normalizes over the fields it is given.
type Field struct {
	Text   string
	Weight float64
}

// LevenshteinDistance calculates the edit distance between two strings
// This measures how many single-character edits (insertions, deletions, or substitutions)
// are required to change one string into another
func LevenshteinDistance(s1, s2 string) int {
	s1 = normalizeString(s1)
	s2 = normalizeString(s2)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
	}
	for i := 0; i <= m; i++ {
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			d[i][j] = min3(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
		}
	}

	return d[m][n]
}

// threshold returns the tolerated edit distance for a query length.
func threshold(query string) int {
	switch {
	case len(query) <= 3:
		return 1
	case len(query) >= 8:
		return 3
	default:
		return 2
	}
}

// scoreText scores how well query matches a single text, 0 is a perfect
// match and 1 is no match. Whole-word beats substring beats prefix
// beats within-threshold edit distance.
func scoreText(query, text string) float64 {
	query = normalizeString(query)
	text = normalizeString(text)
	if query == "" || text == "" {
		return 1
	}

	if containsWord(text, query) {
		return 0
	}
	if strings.Contains(text, query) {
		return 0.05
	}

	best := 1.0
	tol := threshold(query)
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) {
			if best > 0.1 {
				best = 0.1
			}
			continue
		}
		dist := LevenshteinDistance(query, word)
		if dist <= tol {
			s := 0.2 + 0.15*float64(dist)
			if s < best {
				best = s
			}
		}
	}
	return best
}

// ScoreFields scores a query against weighted fields. The returned
// score is in 0..1, lower is better; matched reports whether any field
// matched at all. Unmatched fields contribute their full weight at the
// worst score, so a hit on a heavy field (subject) ranks ahead of the
// same hit on a light field (snippet).
func ScoreFields(query string, fields []Field) (float64, bool) {
	var totalWeight, weighted float64
	matched := false
	for _, f := range fields {
		if f.Weight <= 0 {
			continue
		}
		s := scoreText(query, f.Text)
		if s < 1 {
			matched = true
		}
		weighted += s * f.Weight
		totalWeight += f.Weight
	}
	if totalWeight == 0 {
		return 1, false
	}
	return weighted / totalWeight, matched
}

// Match reports whether query fuzzy-matches any of the given texts,
// typo-tolerant and partial-match friendly.
func Match(query string, texts ...string) bool {
	for _, text := range texts {
		if scoreText(query, text) < 1 {
			return true
		}
	}
	return false
}

// Helper functions

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

// normalizeString converts to lowercase and collapses whitespace
func normalizeString(s string) string {
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// containsWord checks if text contains query as a whole word
func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}
