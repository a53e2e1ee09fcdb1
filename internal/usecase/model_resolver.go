package usecase

import (
	"regexp"
	"sort"
	"strings"
)

// Package-level compiled regex pattern for performance
var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// Scoring bonuses
const (
	substringMatchBonus = 10.0 // One name contains the other
	fuzzyWeightFactor   = 0.8  // Fuzzy token matches count 80%
)

// ResolverConfig holds configuration for the model resolver
type ResolverConfig struct {
	MinConfidenceThreshold float64
	FuzzyEditDistance      int
	MaxSuggestions         int
}

// NameSuggestion is a catalog model name that resembles a requested name
type NameSuggestion struct {
	Model string
	Score float64 // 0-100
}

// ModelResolver suggests catalog model names for a name that is not in the catalog
// ("interceptor" -> "Interceptor 650").
type ModelResolver struct {
	minConfidenceThreshold float64
	fuzzyEditDistance      int
	maxSuggestions         int
}

// NewModelResolver creates a new resolver with the given configuration
func NewModelResolver(config ResolverConfig) *ModelResolver {
	threshold := config.MinConfidenceThreshold
	if threshold <= 0 {
		threshold = 40.0
	}

	fuzzyDist := config.FuzzyEditDistance
	if fuzzyDist <= 0 {
		fuzzyDist = 1
	}

	limit := config.MaxSuggestions
	if limit <= 0 {
		limit = 3
	}

	return &ModelResolver{
		minConfidenceThreshold: threshold,
		fuzzyEditDistance:      fuzzyDist,
		maxSuggestions:         limit,
	}
}

// Suggest returns up to the configured number of distinct model names scoring at
// least the confidence threshold, best first.
func (r *ModelResolver) Suggest(name string, models []string) []NameSuggestion {
	seen := make(map[string]bool, len(models))
	var out []NameSuggestion
	for _, model := range models {
		if model == "" || seen[model] {
			continue
		}
		seen[model] = true

		score := r.score(name, model)
		if score >= r.minConfidenceThreshold {
			out = append(out, NameSuggestion{Model: model, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Model < out[j].Model
	})

	if len(out) > r.maxSuggestions {
		out = out[:r.maxSuggestions]
	}
	return out
}

// score computes how well a requested name matches a catalog name.
// Uses a weighted combination of:
//   - query token coverage: what % of the requested tokens appear in the catalog name
//   - catalog token coverage: what % of the catalog name tokens were requested
//   - Jaccard overlap
//
// plus a substring bonus. The result is capped at 100.
func (r *ModelResolver) score(query, model string) float64 {
	queryTokens := tokenize(query)
	modelTokens := tokenize(model)
	if len(queryTokens) == 0 || len(modelTokens) == 0 {
		return 0
	}

	queryMatched := r.matchedWeight(queryTokens, modelTokens)
	modelMatched := r.matchedWeight(modelTokens, queryTokens)
	union := findUnion(queryTokens, modelTokens)

	queryCoverage := queryMatched / float64(len(queryTokens))
	modelCoverage := modelMatched / float64(len(modelTokens))
	jaccard := queryMatched / float64(union)

	score := (queryCoverage*0.60 + modelCoverage*0.20 + jaccard*0.20) * 100

	queryLower := strings.ToLower(strings.TrimSpace(query))
	modelLower := strings.ToLower(model)
	if len(queryLower) > 3 && (strings.Contains(modelLower, queryLower) || strings.Contains(queryLower, modelLower)) {
		score += substringMatchBonus
	}

	if score > 100 {
		score = 100
	}
	return score
}

// matchedWeight counts tokens of a found in b; fuzzy matches count fuzzyWeightFactor
func (r *ModelResolver) matchedWeight(a, b []string) float64 {
	set := make(map[string]bool, len(b))
	for _, t := range b {
		set[t] = true
	}

	var total float64
	for _, t := range a {
		if set[t] {
			total++
			continue
		}
		for _, candidate := range b {
			if fuzzyTokenMatch(t, candidate, r.fuzzyEditDistance) {
				total += fuzzyWeightFactor
				break
			}
		}
	}
	return total
}

// tokenize splits a name into lowercase tokens with punctuation removed.
// Numbers are kept: "390" and "790" tell models apart.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(cleaned) {
		if seen[word] {
			continue
		}
		seen[word] = true
		tokens = append(tokens, word)
	}
	return tokens
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Only apply fuzzy matching to tokens of 4+ chars to avoid false positives
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// Two rows instead of the full matrix
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
