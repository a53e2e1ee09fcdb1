package domain

// Match is one ranked similarity result.
type Match struct {
	Model   string  `json:"model"`
	Index   int     `json:"-"`
	Score   float64 `json:"score"`   // cosine similarity, nominally 0-1
	Percent float64 `json:"percent"` // Score * 100
}

// SimilarityResult is the ranked output for one reference model.
type SimilarityResult struct {
	Reference string  `json:"reference"`
	Found     bool    `json:"found"`
	Snapping  bool    `json:"snapping"`
	Matches   []Match `json:"matches"`
	// Suggestions lists catalog names resembling Reference when it was not found.
	Suggestions []string `json:"suggestions,omitempty"`
}

// FetchRequest identifies a model to fetch from the external record source.
type FetchRequest struct {
	Model   string `json:"model" binding:"required"`
	Variant string `json:"variant,omitempty"`
}
