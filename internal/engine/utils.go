package engine

import "sort"

// LevenshteinDistance calculates the edit distance between two strings
func LevenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// Two rows are enough: the previous one and the one being filled
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

// ClosestMatch returns the candidate nearest to name, if it is within maxDistance edits.
// Ties are broken alphabetically so the answer is deterministic.
func ClosestMatch(name string, candidates []string, maxDistance int) (string, bool) {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	best, bestDistance := "", maxDistance+1
	for _, c := range sorted {
		if d := LevenshteinDistance(name, c); d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best, best != ""
}
