package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// uniformScaled returns n values drawn from U(-1, 1), each multiplied by
// 1/sqrt(fan).
//
// Weights use fan = input width and biases use fan = output width.
// A nil rng draws from the global source.
func uniformScaled(rng *rand.Rand, n, fan int) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = 2*randFloat(rng) - 1
	}
	floats.Scale(1/math.Sqrt(float64(fan)), data)
	return data
}

func randFloat(rng *rand.Rand) float64 {
	if rng == nil {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		return rand.Float64()
	}
	return rng.Float64()
}
