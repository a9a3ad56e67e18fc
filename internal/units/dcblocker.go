package units

import "math"

// DCBlocker is the first-order IIR high-pass
//
//	y[n] = x[n] - x[n-1] + R*y[n-1],  R = 1 - 2*pi*fc/fs
//
// First order is deliberate: its free response is purely exponential,
// so removing the input never produces the overshoot or trend-following
// a higher-order filter would add.
//
// Two deployment configurations exist. The control-voltage re-entry
// path uses a very low cutoff (must pass audio-rate modulation, block
// only static offset) and adds silence-triggered auto-reset, because at
// 0.01 Hz the natural settling time runs to tens of seconds. The output
// stage uses a 1 Hz cutoff that settles fast and protects transducers.
type DCBlocker struct {
	r  float64
	x1 float64
	y1 float64

	autoReset    bool
	threshold    float64
	holdSamples  int
	quietSamples int
}

const (
	// CVBlockerCutoffHz keeps static offset out of control re-entry
	// paths without touching audio-rate modulation.
	CVBlockerCutoffHz = 0.01
	// OutputBlockerCutoffHz sits ahead of the physical output stage.
	OutputBlockerCutoffHz = 1.0

	DefaultResetThreshold = 1e-6
	DefaultResetHoldSec   = 0.05
)

// NewDCBlocker builds a blocker with an arbitrary cutoff and no
// auto-reset.
func NewDCBlocker(sampleRate, cutoffHz float64) *DCBlocker {
	d := &DCBlocker{}
	d.SetCutoff(sampleRate, cutoffHz)
	return d
}

// NewCVBlocker is the re-entry configuration: 0.01 Hz cutoff with
// silence-triggered auto-reset at the default threshold and hold.
func NewCVBlocker(sampleRate float64) *DCBlocker {
	d := NewDCBlocker(sampleRate, CVBlockerCutoffHz)
	d.SetAutoReset(sampleRate, DefaultResetThreshold, DefaultResetHoldSec)
	return d
}

// NewOutputBlocker is the output-stage configuration: 1 Hz cutoff,
// no auto-reset.
func NewOutputBlocker(sampleRate float64) *DCBlocker {
	return NewDCBlocker(sampleRate, OutputBlockerCutoffHz)
}

func (d *DCBlocker) SetCutoff(sampleRate, cutoffHz float64) {
	r := 1 - 2*math.Pi*cutoffHz/sampleRate
	if r < 0 {
		r = 0
	}
	d.r = r
}

// R exposes the feedback coefficient, mainly for tests.
func (d *DCBlocker) R() float64 {
	return d.r
}

// SetAutoReset arms silence detection: when every input sample stays
// below threshold in magnitude for holdSec, state is zeroed immediately
// instead of waiting out the filter's natural settling time.
func (d *DCBlocker) SetAutoReset(sampleRate, threshold, holdSec float64) {
	d.autoReset = true
	d.threshold = threshold
	d.holdSamples = int(holdSec * sampleRate)
	if d.holdSamples < 1 {
		d.holdSamples = 1
	}
	d.quietSamples = 0
}

func (d *DCBlocker) DisableAutoReset() {
	d.autoReset = false
	d.quietSamples = 0
}

// Reset zeroes the filter state; exposed as a message-driven manual
// reset on both deployment configurations.
func (d *DCBlocker) Reset() {
	d.x1 = 0
	d.y1 = 0
	d.quietSamples = 0
}

// State reports the internal (x1, y1) pair, mainly for tests.
func (d *DCBlocker) State() (float64, float64) {
	return d.x1, d.y1
}

// ProcessBlock filters a block; in and out may alias.
func (d *DCBlocker) ProcessBlock(in, out []float64) {
	for i := range in {
		x := in[i]
		if d.autoReset {
			if math.Abs(x) < d.threshold {
				d.quietSamples++
				if d.quietSamples >= d.holdSamples {
					d.x1 = 0
					d.y1 = 0
					d.quietSamples = 0
				}
			} else {
				d.quietSamples = 0
			}
		}
		y := x - d.x1 + d.r*d.y1
		d.x1 = x
		d.y1 = y
		out[i] = y
	}
}
