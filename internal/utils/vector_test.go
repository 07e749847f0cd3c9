package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0, 0}, []float32{1, 0, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 2}, []float32{-1, -2}), 1e-9)

	// Scale invariance.
	a := []float32{0.3, 0.7, 0.1}
	b := []float32{0.6, 1.4, 0.2}
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-6)
}

func TestCosineSimilarityDegenerate(t *testing.T) {
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.Zero(t, CosineSimilarity([]float32{1, 2}, []float32{1}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestIncrementalMean(t *testing.T) {
	// Folding samples one at a time must match a direct mean.
	samples := [][]float32{
		{1, 2, 3},
		{3, 2, 1},
		{2, 2, 2},
		{0, 4, 8},
	}

	centroid := make([]float32, 3)
	copy(centroid, samples[0])
	for i := 1; i < len(samples); i++ {
		centroid = IncrementalMean(centroid, samples[i], int64(i))
	}

	for dim := 0; dim < 3; dim++ {
		var sum float64
		for _, s := range samples {
			sum += float64(s[dim])
		}
		assert.InDelta(t, sum/float64(len(samples)), float64(centroid[dim]), 1e-5)
	}
}

func TestIncrementalMeanDoesNotMutateInputs(t *testing.T) {
	centroid := []float32{1, 1}
	sample := []float32{3, 3}
	out := IncrementalMean(centroid, sample, 1)

	assert.Equal(t, []float32{1, 1}, centroid)
	assert.Equal(t, []float32{3, 3}, sample)
	assert.Equal(t, []float32{2, 2}, out)
}

func TestIncrementalMeanDimensionMismatch(t *testing.T) {
	out := IncrementalMean([]float32{1, 2}, []float32{5, 6, 7}, 3)
	assert.Equal(t, []float32{5, 6, 7}, out)
}
