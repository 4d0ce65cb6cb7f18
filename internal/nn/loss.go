package nn

import "gonum.org/v1/gonum/floats"

// MSE returns the mean squared error between prediction and target:
//
//	mean((prediction - target)²)
//
// Returns a *ShapeError if the lengths differ.
func MSE(prediction, target []float64) (float64, error) {
	if len(prediction) != len(target) {
		return 0, shapeError("MSE", "target", len(prediction), len(target))
	}
	if len(prediction) == 0 {
		return 0, nil
	}
	return mse(prediction, target), nil
}

func mse(prediction, target []float64) float64 {
	diff := make([]float64, len(prediction))
	floats.SubTo(diff, prediction, target)
	return floats.Dot(diff, diff) / float64(len(diff))
}
