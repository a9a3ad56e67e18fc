// Package analysis provides offline spectral measurement helpers used
// to verify rendered audio: fundamental estimation and level metrics.
// Nothing here is real-time safe.
package analysis

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

var ErrNoSignal = errors.New("signal has no measurable spectral peak")

const minSamples = 256

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// EstimateFundamental returns the strongest spectral component of the
// signal in Hz. The signal is Hann-windowed and zero-padded to a
// power-of-two FFT; the peak bin is refined by parabolic interpolation
// on log magnitude, so accuracy is well under one bin.
func EstimateFundamental(signal []float64, sampleRate float64) (float64, error) {
	if len(signal) < minSamples {
		return 0, fmt.Errorf("need at least %d samples, got %d", minSamples, len(signal))
	}
	if sampleRate <= 0 {
		return 0, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}

	fftSize := nextPowerOf2(len(signal))
	in := make([]complex128, fftSize)
	n := float64(len(signal) - 1)
	for i, v := range signal {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/n)
		in[i] = complex(v*w, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return 0, fmt.Errorf("fft plan: %w", err)
	}
	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return 0, fmt.Errorf("fft: %w", err)
	}

	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for i := 0; i < bins; i++ {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}
	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)

	peak := 1
	for i := 2; i < bins-1; i++ {
		if mag[i] > mag[peak] {
			peak = i
		}
	}
	if mag[peak] <= 1e-12 {
		return 0, ErrNoSignal
	}

	// Parabolic refinement on log magnitude around the peak bin.
	delta := 0.0
	if peak > 1 && peak < bins-1 && mag[peak-1] > 0 && mag[peak+1] > 0 {
		a := math.Log(mag[peak-1])
		b := math.Log(mag[peak])
		c := math.Log(mag[peak+1])
		denom := a - 2*b + c
		if denom != 0 {
			delta = 0.5 * (a - c) / denom
		}
	}

	return (float64(peak) + delta) * sampleRate / float64(fftSize), nil
}

// RMS returns the root-mean-square level of the signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	var sum float64
	for _, v := range signal {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(signal)))
}

// CentsBetween returns the interval from freqA to freqB in cents.
func CentsBetween(freqA, freqB float64) float64 {
	return 1200 * math.Log2(freqB/freqA)
}
