package merge

import (
	"jarsmith/internal/mapping"
	"jarsmith/internal/match"
)

const (
	maxSuggestions = 3
	minSimilarity  = 0.5
)

// suggest returns the names in namespace ns closest to an unmatched token, searching the
// token owner's members (or all classes for class tokens). Ranking is match.Score.
func suggest(t *mapping.Tree, ns int, tok mapping.Token) []string {
	var pool []string

	switch tok.Kind() {
	case mapping.KindClass:
		for _, c := range t.Classes() {
			pool = append(pool, c.Name(ns))
		}
	default:
		owner := t.ClassByName(ns, tok.OwnerName())
		if owner == nil {
			return nil
		}

		if tok.Kind() == mapping.KindField {
			for _, f := range owner.Fields() {
				pool = append(pool, f.Name(ns))
			}
		} else {
			for _, m := range owner.Methods() {
				pool = append(pool, m.Name(ns))
			}
		}
	}

	return match.Rank(tok.Name(), pool).AboveThreshold(minSimilarity).Top(maxSuggestions).Names()
}
