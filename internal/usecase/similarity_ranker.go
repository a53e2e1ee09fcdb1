package usecase

import (
	"math"
	"sort"

	"github.com/motospec/backend/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultNearEqualTol is the relative difference under which two raw numeric values
// count as the same value (649cc vs 647.95cc).
const DefaultNearEqualTol = 0.01

// RankOptions configures one ranking pass.
type RankOptions struct {
	// Snapping overwrites a candidate's standardized value with the reference's when
	// their raw values are within NearEqualTol of each other.
	Snapping     bool
	NearEqualTol float64
	// TopN truncates the result; <= 0 keeps every candidate.
	TopN int
}

// Rank scores every row against the reference row and returns the best matches,
// sorted by descending score, then model name, then row index. The reference row
// and any row sharing its model name are excluded. An out-of-range reference yields
// an empty result.
func Rank(fm *FeatureMatrix, ref int, opts RankOptions) []domain.Match {
	if fm == nil || ref < 0 || ref >= fm.Len() {
		return []domain.Match{}
	}

	refName := fm.Models[ref]
	refVec := fm.Vector(ref)

	matches := make([]domain.Match, 0, fm.Len()-1)
	for i := 0; i < fm.Len(); i++ {
		if i == ref || fm.Models[i] == refName {
			continue
		}
		var candVec []float64
		if opts.Snapping {
			candVec = fm.vectorWith(i, SnapNumeric(fm, ref, i, opts.NearEqualTol))
		} else {
			candVec = fm.Vector(i)
		}
		score := CosineSimilarity(refVec, candVec)
		matches = append(matches, domain.Match{
			Model:   fm.Models[i],
			Index:   i,
			Score:   score,
			Percent: score * 100,
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		if matches[a].Model != matches[b].Model {
			return matches[a].Model < matches[b].Model
		}
		return matches[a].Index < matches[b].Index
	})

	if opts.TopN > 0 && len(matches) > opts.TopN {
		matches = matches[:opts.TopN]
	}
	return matches
}

// SnapNumeric returns the candidate's standardized numeric vector with near-equal
// features replaced by the reference's standardized value. A feature snaps only when
// both raw values are present, the reference value is nonzero and
// |cand-ref|/|ref| <= tol.
func SnapNumeric(fm *FeatureMatrix, ref, cand int, tol float64) []float64 {
	snapped := mat.Row(nil, cand, fm.Scaled)
	for j := range snapped {
		refRaw, candRaw := fm.Raw.At(ref, j), fm.Raw.At(cand, j)
		if IsMissing(refRaw) || IsMissing(candRaw) || refRaw == 0 {
			continue
		}
		if math.Abs(candRaw-refRaw)/math.Abs(refRaw) <= tol {
			snapped[j] = fm.Scaled.At(ref, j)
		}
	}
	return snapped
}

// PairSimilarity is the cosine similarity of two rows of one build.
func PairSimilarity(fm *FeatureMatrix, ref, cand int, opts RankOptions) float64 {
	if opts.Snapping {
		return CosineSimilarity(fm.Vector(ref), fm.vectorWith(cand, SnapNumeric(fm, ref, cand, opts.NearEqualTol)))
	}
	return CosineSimilarity(fm.Vector(ref), fm.Vector(cand))
}

// SimilarityMatrix returns plain cosine similarity between every pair of rows.
func SimilarityMatrix(fm *FeatureMatrix) [][]float64 {
	n := fm.Len()
	vecs := make([][]float64, n)
	for i := range vecs {
		vecs[i] = fm.Vector(i)
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s := CosineSimilarity(vecs[i], vecs[j])
			out[i][j], out[j][i] = s, s
		}
	}
	return out
}

// CosineSimilarity returns a·b / (|a||b|), or 0 when either vector has zero length.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	normA, normB := floats.Norm(a, 2), floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}
