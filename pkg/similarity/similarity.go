// Package similarity provides pure vector math for ranking embeddings:
// cosine similarity, stable top-k selection, and vector averaging.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("k must be positive")

// ErrNoVectors is returned when an aggregate is requested over zero vectors.
var ErrNoVectors = errors.New("at least one vector is required")

// DimensionMismatchError indicates two vectors of different lengths were
// compared. Embeddings of one provider configuration share a fixed dimension,
// so a mismatch means stored data no longer matches the configured model.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Cosine returns the cosine similarity of a and b in [-1, 1].
// A zero-magnitude vector has no direction; it compares as similarity 0 so
// degenerate embeddings rank last instead of producing NaN scores.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Expected: len(a), Actual: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// TopK ranks candidates by cosine similarity against query, descending, and
// returns the indices of the k best. Ties keep the original candidate order,
// so the ranking is deterministic for identical inputs. If k exceeds the
// candidate count, all candidates are returned ranked.
func TopK(query []float32, candidates [][]float32, k int) ([]int, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(candidates) == 0 {
		return []int{}, nil
	}

	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		s, err := Cosine(query, c)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		scores[i] = s
	}

	indices := make([]int, len(candidates))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return scores[indices[i]] > scores[indices[j]]
	})

	if k > len(indices) {
		k = len(indices)
	}
	return indices[:k], nil
}

// Average returns the element-wise mean of the given vectors, e.g. the
// centroid of a cluster of related records.
func Average(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, ErrNoVectors
	}

	dim := len(vectors[0])
	sums := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d: %w", i, &DimensionMismatchError{Expected: dim, Actual: len(v)})
		}
		for j, x := range v {
			sums[j] += float64(x)
		}
	}

	mean := make([]float32, dim)
	n := float64(len(vectors))
	for j, s := range sums {
		mean[j] = float32(s / n)
	}
	return mean, nil
}
