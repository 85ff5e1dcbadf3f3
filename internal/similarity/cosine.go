package similarity

import "math"

// cosineSimilarity computes dot(a,b) / (||a|| * ||b||), clamped to [-1, 1].
// It is 0 when either vector has zero norm.
//
// Vectors of different length live in different feature spaces and also
// yield 0. Rows from one BuildMatrix call always share a length, so the
// ranker never takes that branch.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	return cosineWithNorm(a, b, norm(a))
}

// cosineWithNorm lets the ranker reuse the query norm across every row.
func cosineWithNorm(query, row []float64, queryNorm float64) float64 {
	rowNorm := norm(row)
	if queryNorm == 0 || rowNorm == 0 {
		return 0
	}
	return clip(dot(query, row)/(queryNorm*rowNorm), -1, 1)
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(v []float64) float64 {
	return math.Sqrt(dot(v, v))
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
