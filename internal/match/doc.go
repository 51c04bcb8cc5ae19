// Package match ranks JVM names by similarity. The merge engine uses it to suggest the rows an
// unmatched or ambiguous mapping record most likely meant.
//
// Key functions:
//   - NormalizeName: folds a class, field or method name for fuzzy comparison
//   - Levenshtein: computes edit distance between strings
//   - Score: similarity of two names, raw or normalized, whichever is higher
//   - Rank: orders candidate names by Score
package match
