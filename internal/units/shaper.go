package units

import "math"

// The CV shapers keep their per-sample math branch-free: mode and
// coefficient selection happens through arithmetic, never conditionals,
// so the same code propagates identically into audio nodes and
// automation targets.

// SoftClip is the cubic control-voltage saturator y = x - c*x^3.
// The default coefficient keeps the curve monotonic across the full
// +/-12 V control range.
type SoftClip struct {
	Coefficient float64
}

// DefaultSoftClipCoefficient is calibrated so a 12 V swing stays inside
// the monotonic region of the cubic.
const DefaultSoftClipCoefficient = 0.002

func NewSoftClip() *SoftClip {
	return &SoftClip{Coefficient: DefaultSoftClipCoefficient}
}

func (s *SoftClip) Params() []Descriptor {
	return []Descriptor{
		{Name: "coefficient", Default: DefaultSoftClipCoefficient, Min: 0, Max: 0.01, Rate: RateBlock},
	}
}

// Shape applies the cubic to one sample.
func (s *SoftClip) Shape(x float64) float64 {
	return x - s.Coefficient*x*x*x
}

// ProcessBlock shapes a block; in and out may alias.
func (s *SoftClip) ProcessBlock(in, out []float64) {
	c := s.Coefficient
	for i := range in {
		x := in[i]
		out[i] = x - c*x*x*x
	}
}

// slewEps keeps the branch-free direction weight defined at d == 0.
const slewEps = 1e-20

// ThermalSlew is an asymmetric one-pole lag with separate rise and fall
// time constants. The rise/fall coefficient is selected arithmetically
// from the sign of the remaining distance.
type ThermalSlew struct {
	riseCoeff float64
	fallCoeff float64
	value     float64
}

func NewThermalSlew(sampleRate, riseSec, fallSec float64) *ThermalSlew {
	t := &ThermalSlew{}
	t.SetTimes(sampleRate, riseSec, fallSec)
	return t
}

func onePoleCoeff(sampleRate, timeConst float64) float64 {
	if timeConst <= 0 || sampleRate <= 0 {
		return 1
	}
	return 1 - mathExp(-1/(timeConst*sampleRate))
}

func (t *ThermalSlew) SetTimes(sampleRate, riseSec, fallSec float64) {
	t.riseCoeff = onePoleCoeff(sampleRate, riseSec)
	t.fallCoeff = onePoleCoeff(sampleRate, fallSec)
}

// Step advances one sample toward target and returns the new value.
func (t *ThermalSlew) Step(target float64) float64 {
	d := target - t.value
	up := 0.5 + 0.5*d/(math.Abs(d)+slewEps)
	coeff := t.fallCoeff + (t.riseCoeff-t.fallCoeff)*up
	t.value += coeff * d
	return t.value
}

// ProcessBlock slews a block; in and out may alias.
func (t *ThermalSlew) ProcessBlock(in, out []float64) {
	for i := range in {
		out[i] = t.Step(in[i])
	}
}

func (t *ThermalSlew) Reset(v float64) {
	t.value = v
}

func (t *ThermalSlew) Value() float64 {
	return t.value
}
