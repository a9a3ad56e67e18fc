// Package units implements the per-sample DSP algorithms of the voice
// core: oscillator, noise source, voltage-controlled amplifier, DC
// blocker and CV shapers. Units render fixed-size blocks and never
// allocate inside ProcessBlock.
package units

// DefaultBlockSize is the processing block length the engine renders at.
const DefaultBlockSize = 128

// UpdateRate distinguishes parameters resolved every sample from
// parameters resolved once per processing block.
type UpdateRate int

const (
	RateAudio UpdateRate = iota
	RateBlock
)

func (r UpdateRate) String() string {
	if r == RateBlock {
		return "per-block"
	}
	return "per-sample"
}

// Descriptor describes one named unit parameter. The descriptor set is
// the contract the matrix and host environment bind against.
type Descriptor struct {
	Name    string
	Default float64
	Min     float64
	Max     float64
	Rate    UpdateRate
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Smoother is a single-pole lag toward a target value, used to de-click
// block-rate parameter changes.
type Smoother struct {
	value  float64
	target float64
	coeff  float64
}

// NewSmoother builds a smoother with the given time constant in seconds.
func NewSmoother(sampleRate, timeConst float64) *Smoother {
	s := &Smoother{}
	s.SetTimeConstant(sampleRate, timeConst)
	return s
}

func (s *Smoother) SetTimeConstant(sampleRate, timeConst float64) {
	if timeConst <= 0 || sampleRate <= 0 {
		s.coeff = 1
		return
	}
	s.coeff = 1 - mathExp(-1/(timeConst*sampleRate))
}

func (s *Smoother) SetTarget(v float64) {
	s.target = v
}

// Reset jumps directly to v with no lag.
func (s *Smoother) Reset(v float64) {
	s.value = v
	s.target = v
}

// Next advances one sample toward the target and returns the new value.
func (s *Smoother) Next() float64 {
	s.value += (s.target - s.value) * s.coeff
	return s.value
}

func (s *Smoother) Value() float64 {
	return s.value
}
