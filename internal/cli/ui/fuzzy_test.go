package ui

import (
	"reflect"
	"testing"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1       string
		s2       string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"wifinna", "wifinina", 1},
		{"wifi", "wifinina", 4},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"_"+tt.s2, func(t *testing.T) {
			result := LevenshteinDistance(tt.s1, tt.s2)
			if result != tt.expected {
				t.Errorf("LevenshteinDistance(%q, %q) = %d; want %d", tt.s1, tt.s2, result, tt.expected)
			}
			if back := LevenshteinDistance(tt.s2, tt.s1); back != result {
				t.Errorf("distance is not symmetric: %d vs %d", result, back)
			}
		})
	}
}

func TestFindSimilar(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		candidates []string
		opts       *FuzzyMatchOptions
		expected   []string
	}{
		{
			name:       "typo in mode",
			target:     "wifinna",
			candidates: []string{"wifinina"},
			expected:   []string{"wifinina"},
		},
		{
			name:       "case insensitive by default",
			target:     "WIFININA",
			candidates: []string{"wifinina"},
			expected:   []string{"wifinina"},
		},
		{
			name:       "case sensitive",
			target:     "WIFININA",
			candidates: []string{"wifinina"},
			opts:       &FuzzyMatchOptions{CaseSensitive: true},
			expected:   []string{},
		},
		{
			name:       "closest first",
			target:     "jsn",
			candidates: []string{"table", "yaml", "json"},
			expected:   []string{"json", "yaml"},
		},
		{
			name:       "limit suggestions",
			target:     "a",
			candidates: []string{"b", "c", "d", "e"},
			opts:       &FuzzyMatchOptions{MaxSuggestions: 2},
			expected:   []string{"b", "c"},
		},
		{
			name:       "nothing close",
			target:     "ethernet",
			candidates: []string{"wifinina"},
			expected:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindSimilar(tt.target, tt.candidates, tt.opts)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("FindSimilar(%q) = %v; want %v", tt.target, result, tt.expected)
			}
		})
	}
}

func TestFindSimilarDoesNotMutateOptions(t *testing.T) {
	opts := &FuzzyMatchOptions{}
	FindSimilar("x", []string{"y"}, opts)
	if opts.MaxDistance != 0 || opts.MaxSuggestions != 0 {
		t.Errorf("options were modified: %+v", opts)
	}
}
