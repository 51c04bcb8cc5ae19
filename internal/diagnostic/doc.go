// Package diagnostic provides structured warnings and errors collected while
// merging and translating mappings.
//
// Key capabilities:
//   - Unmatched record warnings (lenient merges)
//   - Ambiguous fallback-join reports with the competing candidates
//   - Nearest-name suggestions for records that could not be joined
package diagnostic
