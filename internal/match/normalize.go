package match

import (
	"strings"
	"unicode"
)

// NormalizeName folds a JVM name for fuzzy matching:
//  1. The package path and enclosing class names are dropped ("pkg/World$Ticker" -> "Ticker").
//  2. CamelCase is split into tokens.
//  3. Tokens are lowercased and joined without separators.
func NormalizeName(s string) string {
	return strings.Join(TokenizeName(s), "")
}

// TokenizeName splits a name into lowercase tokens after dropping its package path and
// enclosing classes.
func TokenizeName(s string) []string {
	tokens := tokenizeCamelCase(simpleName(s))
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}

	return tokens
}

// simpleName strips the package path and enclosing class names. A trailing '$' segment that is
// empty (a synthetic name) keeps the full name.
func simpleName(s string) string {
	s = s[strings.LastIndexByte(s, '/')+1:]
	if i := strings.LastIndexByte(s, '$'); i >= 0 && i+1 < len(s) {
		s = s[i+1:]
	}

	return s
}

// tokenizeCamelCase splits a CamelCase or camelCase string into tokens.
// Examples:
//   - "getBlockID" -> ["get", "Block", "ID"]
//   - "world_time" -> ["world", "time"]
//   - "NBTTagCompound" -> ["NBT", "Tag", "Compound"]
func tokenizeCamelCase(s string) []string {
	if s == "" {
		return nil
	}

	var (
		tokens  []string
		current strings.Builder
	)

	runes := []rune(s)
	for i, r := range runes {
		if isSeparator(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}

			continue
		}

		if i > 0 && shouldStartNewToken(runes, i) && current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

func isSeparator(r rune) bool {
	return r == '_' || r == '$' || r == '-'
}

// shouldStartNewToken determines if a new token starts at position i.
func shouldStartNewToken(runes []rune, i int) bool {
	r := runes[i]
	prev := runes[i-1]

	// "tickWorld": split before 'W'
	if unicode.IsUpper(r) && !unicode.IsUpper(prev) && !isSeparator(prev) {
		return true
	}

	// "NBTTag": split before the 'T' starting "Tag"
	hasNextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

	return unicode.IsUpper(r) && unicode.IsUpper(prev) && hasNextLower
}
