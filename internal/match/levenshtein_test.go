package match

import (
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected int
	}{
		// Identical strings
		{"", "", 0},
		{"a", "a", 0},
		{"field_1", "field_1", 0},

		// Empty vs non-empty
		{"", "abc", 3},
		{"abc", "", 3},

		// Single character operations
		{"a", "b", 1},
		{"a", "ab", 1},
		{"ab", "a", 1},

		// Multiple operations
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},

		// Case-sensitive
		{"Tick", "tick", 1},

		// Mapping names
		{"field_9", "field_2", 1},
		{"method_3", "method_31", 1},
		{"func_71410_x", "func_71411_J", 2},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			result := Levenshtein(tt.a, tt.b)
			if result != tt.expected {
				t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, result, tt.expected)
			}

			if reverse := Levenshtein(tt.b, tt.a); result != reverse {
				t.Errorf("Levenshtein symmetry failed: (%q, %q) = %d, reversed = %d", tt.a, tt.b, result, reverse)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected float64
	}{
		{"", "", 1.0},
		{"tick", "tick", 1.0},
		{"abc", "xyz", 0.0},
		{"kitten", "sitting", 1.0 - 3.0/7.0},
		{"field_9", "field_2", 1.0 - 1.0/7.0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			result := Similarity(tt.a, tt.b)
			if diff := result - tt.expected; diff < -0.001 || diff > 0.001 {
				t.Errorf("Similarity(%q, %q) = %f, want %f", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		minScore float64
	}{
		// Equal after normalization
		{"worldTime", "world_time", 1.0},
		{"pkg/World$Ticker", "Ticker", 1.0},
		{"NBTTag", "nbt_tag", 1.0},

		// Similar names
		{"tickWorld", "tickWorlds", 0.8},
		{"getEntity", "getEntities", 0.5},

		// Different names
		{"render", "save", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			result := Score(tt.a, tt.b)
			if result < tt.minScore {
				t.Errorf("Score(%q, %q) = %f, want >= %f", tt.a, tt.b, result, tt.minScore)
			}
		})
	}
}

func BenchmarkLevenshtein(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Levenshtein("func_71410_x", "func_71411_J")
	}
}

func BenchmarkScore(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Score("net/minecraft/world/World$Ticker", "world_ticker")
	}
}
