package match

// Levenshtein computes the edit distance between two strings: the minimum number of
// single-byte insertions, deletions or substitutions turning one into the other.
//
// Time complexity: O(len(a) * len(b))
// Space complexity: O(min(len(a), len(b))).
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}

	if len(a) == 0 {
		return len(b)
	}

	if len(b) == 0 {
		return len(a)
	}

	if len(a) > len(b) {
		a, b = b, a
	}

	// two rows over the shorter string
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)

	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(b); j++ {
		curr[0] = j

		for i := 1; i <= len(a); i++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}

			curr[i] = min(
				prev[i]+1,      // deletion
				curr[i-1]+1,    // insertion
				prev[i-1]+cost, // substitution
			)
		}

		prev, curr = curr, prev
	}

	return prev[len(a)]
}

// Similarity is 1 - Levenshtein(a, b) / max(len(a), len(b)): 1 for identical strings, 0 for
// strings with nothing in common.
func Similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	return 1.0 - float64(Levenshtein(a, b))/float64(max(len(a), len(b)))
}

// Score compares two names both verbatim and after NormalizeName and returns the higher
// similarity. Intermediate names such as "field_1234" keep their digits significant, while
// readable names such as "tickWorld" and "world_tick" still score high.
func Score(a, b string) float64 {
	return max(Similarity(a, b), Similarity(NormalizeName(a), NormalizeName(b)))
}
