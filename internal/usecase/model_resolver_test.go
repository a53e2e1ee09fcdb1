package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelResolver_Suggest(t *testing.T) {
	resolver := NewModelResolver(ResolverConfig{})
	catalog := []string{
		"Interceptor 650",
		"Continental GT 650",
		"Himalayan 450",
		"Duke 390",
		"Duke 790",
		"Interceptor 650",
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "partial name", query: "interceptor", want: []string{"Interceptor 650"}},
		{name: "typo", query: "Himalyan 450", want: []string{"Himalayan 450"}},
		{name: "number disambiguates", query: "Duke 390", want: []string{"Duke 390", "Duke 790"}},
		{name: "nothing similar", query: "Vespa", want: nil},
		{name: "empty query", query: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, s := range resolver.Suggest(tt.query, catalog) {
				got = append(got, s.Model)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModelResolver_Limit(t *testing.T) {
	resolver := NewModelResolver(ResolverConfig{MaxSuggestions: 1})
	got := resolver.Suggest("Duke", []string{"Duke 390", "Duke 790", "Duke 200"})
	assert.Len(t, got, 1)
	assert.Equal(t, "Duke 200", got[0].Model)
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"himalayan", "himalyan", 1},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"_"+tt.s2, func(t *testing.T) {
			assert.Equal(t, tt.want, levenshteinDistance(tt.s1, tt.s2))
		})
	}
}

func TestFuzzyTokenMatch(t *testing.T) {
	assert.True(t, fuzzyTokenMatch("himalyan", "himalayan", 1))
	assert.False(t, fuzzyTokenMatch("390", "790", 1))
	assert.False(t, fuzzyTokenMatch("duke", "dukes!!", 1))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"continental", "gt", "650"}, tokenize("Continental GT-650 GT"))
	assert.Empty(t, tokenize("  --  "))
}
