// Package scale normalises feature values with statistics fitted on a
// training corpus.
//
// The statistics divide by the feature dictionary size, not by the number of
// instances: mean = Σv/|dict| and variance = Σv²/|dict|. Persisted models
// depend on this exact formula.
package scale

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/happyhackingspace/lf/sparse"
)

// Stats holds per-feature means and variances, indexed like the feature
// dictionary at fit time. Stats are immutable once fitted.
type Stats struct {
	Means     []float64 `json:"means"`
	Variances []float64 `json:"variances"`
}

// Fit computes statistics for every index below dictSize over vectors.
// NaN values (kept missing values) do not contribute.
func Fit(vectors []sparse.Vector, dictSize int) *Stats {
	sums := make([]float64, dictSize)
	squares := make([]float64, dictSize)
	for _, v := range vectors {
		for i, idx := range v.Indices {
			val := v.Values[i]
			if idx >= dictSize || math.IsNaN(val) {
				continue
			}
			sums[idx] += val
			squares[idx] += val * val
		}
	}
	if dictSize > 0 {
		floats.Scale(1/float64(dictSize), sums)
		floats.Scale(1/float64(dictSize), squares)
	}
	return &Stats{Means: sums, Variances: squares}
}

// Size returns the number of indices the statistics know about.
func (s *Stats) Size() int {
	return len(s.Means)
}

// Apply returns a copy of v with (value-mean)/sqrt(variance) at every present
// index. Indices beyond the fitted range, zero-variance indices and NaN
// values pass through unchanged.
func (s *Stats) Apply(v sparse.Vector) sparse.Vector {
	out := v.Clone()
	for i, idx := range out.Indices {
		if idx >= len(s.Means) || s.Variances[idx] == 0 || math.IsNaN(out.Values[i]) {
			continue
		}
		out.Values[i] = (out.Values[i] - s.Means[idx]) / math.Sqrt(s.Variances[idx])
	}
	return out
}

// Transform implements extract.Stage.
func (s *Stats) Transform(v sparse.Vector) sparse.Vector {
	return s.Apply(v)
}
