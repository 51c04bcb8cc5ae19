package match

import "sort"

// Candidate is a name scored against a query.
type Candidate struct {
	Name  string
	Score float64
}

// CandidateList is a list of candidates, best first.
type CandidateList []Candidate

// Rank scores every name of pool against query and sorts the result by score, descending.
// Ties are broken alphabetically so the order is deterministic. Duplicate names are kept once.
func Rank(query string, pool []string) CandidateList {
	seen := make(map[string]bool, len(pool))

	var out CandidateList

	for _, name := range pool {
		if seen[name] {
			continue
		}

		seen[name] = true
		out = append(out, Candidate{Name: name, Score: Score(query, name)})
	}

	sort.Sort(out)

	return out
}

// Len implements sort.Interface.
func (c CandidateList) Len() int { return len(c) }

// Swap implements sort.Interface.
func (c CandidateList) Swap(i, j int) { c[i], c[j] = c[j], c[i] }

// Less implements sort.Interface.
func (c CandidateList) Less(i, j int) bool {
	if c[i].Score != c[j].Score {
		return c[i].Score > c[j].Score
	}

	return c[i].Name < c[j].Name
}

// Top returns the first n candidates.
func (c CandidateList) Top(n int) CandidateList {
	if n >= len(c) {
		return c
	}

	return c[:n]
}

// Best returns the best candidate, or nil if there is none.
func (c CandidateList) Best() *Candidate {
	if len(c) == 0 {
		return nil
	}

	return &c[0]
}

// IsAmbiguous reports whether the two best candidates score within threshold of each other.
func (c CandidateList) IsAmbiguous(threshold float64) bool {
	if len(c) < 2 {
		return false
	}

	return c[0].Score-c[1].Score < threshold
}

// AboveThreshold returns the candidates scoring at least threshold.
func (c CandidateList) AboveThreshold(threshold float64) CandidateList {
	var result CandidateList

	for _, cand := range c {
		if cand.Score >= threshold {
			result = append(result, cand)
		}
	}

	return result
}

// Names returns the candidate names in order.
func (c CandidateList) Names() []string {
	out := make([]string, len(c))
	for i, cand := range c {
		out[i] = cand.Name
	}

	return out
}
