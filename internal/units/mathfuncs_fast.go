//go:build fastmath

package units

import (
	"github.com/meko-christian/algo-approx"
)

// ln2 is the natural logarithm of 2, used for log base conversions.
const ln2 = 0.693147180559945309417232121458

// mathTanh computes tanh(x) using fast approximation.
// Uses the identity: tanh(x) = 1 - 2/(e^(2x) + 1)
func mathTanh(x float64) float64 {
	return 1 - 2/(approx.FastExp(2*x)+1)
}

func mathExp(x float64) float64 {
	return approx.FastExp(x)
}

// mathExp2 computes 2^x using fast approximation.
// Uses the identity: 2^x = e^(x * ln(2))
func mathExp2(x float64) float64 {
	return approx.FastExp(x * ln2)
}
