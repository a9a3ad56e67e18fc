package units

import (
	"math/bits"
	"math/rand"
)

const pinkRows = 16

// pinkScale keeps the summed-row output in roughly the same range as
// the white source.
const pinkScale = 0.25

// Noise produces a continuously variable blend between white noise
// (colour 0) and Voss-McCartney pink noise (colour 1). Colour and level
// are lagged toward their targets so parameter changes never click.
type Noise struct {
	rng *rand.Rand

	rows       [pinkRows]float64
	runningSum float64
	counter    uint32

	colour *Smoother
	level  *Smoother
}

// DefaultNoiseSmoothing is the lag time constant for colour and level.
const DefaultNoiseSmoothing = 0.03

// NewNoise builds a generator seeded deterministically; pass a distinct
// seed per instance so two noise modules never correlate.
func NewNoise(sampleRate float64, seed int64) *Noise {
	n := &Noise{
		rng:    rand.New(rand.NewSource(seed)),
		colour: NewSmoother(sampleRate, DefaultNoiseSmoothing),
		level:  NewSmoother(sampleRate, DefaultNoiseSmoothing),
	}
	for i := range n.rows {
		n.rows[i] = n.random()
		n.runningSum += n.rows[i]
	}
	n.level.Reset(1)
	return n
}

func (n *Noise) Params() []Descriptor {
	return []Descriptor{
		{Name: "colour", Default: 0, Min: 0, Max: 1, Rate: RateBlock},
		{Name: "level", Default: 1, Min: 0, Max: 1, Rate: RateBlock},
	}
}

func (n *Noise) SetColour(v float64) { n.colour.SetTarget(clamp(v, 0, 1)) }
func (n *Noise) SetLevel(v float64)  { n.level.SetTarget(clamp(v, 0, 1)) }

// SetSmoothingTime adjusts the parameter lag time constant.
func (n *Noise) SetSmoothingTime(sampleRate, seconds float64) {
	n.colour.SetTimeConstant(sampleRate, seconds)
	n.level.SetTimeConstant(sampleRate, seconds)
}

func (n *Noise) random() float64 {
	return n.rng.Float64()*2 - 1
}

// pink advances the Voss-McCartney generator: one counter per sample,
// the trailing-zero count of the counter picks the single row to
// refresh, so row k updates at rate fs/2^(k+1).
func (n *Noise) pink() float64 {
	n.counter = (n.counter + 1) & (1<<pinkRows - 1)
	if n.counter != 0 {
		row := bits.TrailingZeros32(n.counter)
		n.runningSum -= n.rows[row]
		n.rows[row] = n.random()
		n.runningSum += n.rows[row]
	}
	return (n.runningSum + n.random()) * pinkScale
}

// ProcessBlock fills out with the colour-blended, level-scaled noise.
func (n *Noise) ProcessBlock(out []float64) {
	for i := range out {
		white := n.random()
		pink := n.pink()
		c := n.colour.Next()
		out[i] = ((1-c)*white + c*pink) * n.level.Next()
	}
}

// Reset re-seeds nothing but zeroes the smoothers to their targets,
// used when a patch load should take effect without a fade.
func (n *Noise) Reset() {
	n.colour.Reset(n.colour.target)
	n.level.Reset(n.level.target)
}
