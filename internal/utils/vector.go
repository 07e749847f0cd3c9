package utils

import "math"

// CosineSimilarity returns the cosine similarity of two vectors, or 0 when
// either has zero magnitude or the dimensions differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// IncrementalMean folds a new sample into a running-mean centroid:
// centroid' = centroid + (sample - centroid) / (count + 1).
// count is the number of samples already folded in. The input slice is not
// modified.
func IncrementalMean(centroid, sample []float32, count int64) []float32 {
	if len(centroid) != len(sample) {
		out := make([]float32, len(sample))
		copy(out, sample)
		return out
	}
	out := make([]float32, len(centroid))
	n := float64(count + 1)
	for i := range centroid {
		out[i] = centroid[i] + float32((float64(sample[i])-float64(centroid[i]))/n)
	}
	return out
}
