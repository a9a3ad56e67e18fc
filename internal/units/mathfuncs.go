//go:build !fastmath

package units

import "math"

func mathTanh(x float64) float64 {
	return math.Tanh(x)
}

func mathExp(x float64) float64 {
	return math.Exp(x)
}

// mathExp2 computes 2^x, the volt-per-octave law.
func mathExp2(x float64) float64 {
	return math.Exp2(x)
}
