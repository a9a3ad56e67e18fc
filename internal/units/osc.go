package units

import "math"

// Waveform selects the oscillator output shape in single mode and
// indexes the per-waveform levels in multi mode.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSaw
	WaveTriangle
	WavePulse

	numWaveforms
)

// OscMode selects between one waveform on one output and all four
// waveforms summed into the two fixed output groups.
type OscMode int

const (
	ModeSingle OscMode = iota
	ModeMulti
)

// Range is the oscillator's coarse frequency span switch.
type Range int

const (
	RangeHi Range = iota
	RangeLo
)

func (r Range) String() string {
	if r == RangeLo {
		return "lo"
	}
	return "hi"
}

// Frequency spans per range position. The knob maps exponentially
// across the span.
const (
	hiRangeMinHz = 1.0
	hiRangeMaxHz = 10_000.0
	loRangeMinHz = 0.02
	loRangeMaxHz = 500.0
)

// KnobToFrequency maps a normalized [0,1] frequency knob position to Hz
// for the given range, exponentially across the span.
func KnobToFrequency(knob float64, r Range) float64 {
	knob = clamp(knob, 0, 1)
	lo, hi := hiRangeMinHz, hiRangeMaxHz
	if r == RangeLo {
		lo, hi = loRangeMinHz, loRangeMaxHz
	}
	return lo * math.Pow(hi/lo, knob)
}

// FrequencyToKnob inverts KnobToFrequency.
func FrequencyToKnob(freq float64, r Range) float64 {
	lo, hi := hiRangeMinHz, hiRangeMaxHz
	if r == RangeLo {
		lo, hi = loRangeMinHz, loRangeMaxHz
	}
	freq = clamp(freq, lo, hi)
	return math.Log(freq/lo) / math.Log(hi/lo)
}

const (
	minPulseWidth = 0.01
	maxPulseWidth = 0.99
)

// Oscillator derives all four waveforms from one master phase
// accumulator, guaranteeing phase coherence between simultaneously
// active shapes. Saw and pulse discontinuities are PolyBLEP-corrected.
type Oscillator struct {
	sampleRate float64

	phase    float64
	prevSync float64

	mode     OscMode
	waveform Waveform

	baseFreq    float64
	detuneCents float64
	pulseWidth  float64
	symmetry    float64
	levels      [numWaveforms]float64

	// Calibration for the hybrid asymmetric sine. The crossfade
	// exponent and the extreme amplitude attenuation are empirically
	// tuned against hardware recordings; both stay configurable.
	xfadeExponent float64
	extremeAtten  float64
	sineDrive     float64
	sineBiasScale float64
}

// NewOscillator returns an oscillator at 440 Hz, centered symmetry,
// half-duty pulse and unity waveform levels.
func NewOscillator(sampleRate float64) *Oscillator {
	o := &Oscillator{
		sampleRate:    sampleRate,
		mode:          ModeMulti,
		baseFreq:      440,
		pulseWidth:    0.5,
		symmetry:      0.5,
		xfadeExponent: 0.5,
		extremeAtten:  1.0,
		sineDrive:     2.2,
		sineBiasScale: 0.6,
	}
	for i := range o.levels {
		o.levels[i] = 1
	}
	return o
}

// Params describes the oscillator's bindable parameters.
func (o *Oscillator) Params() []Descriptor {
	return []Descriptor{
		{Name: "frequency", Default: 440, Min: loRangeMinHz, Max: hiRangeMaxHz, Rate: RateAudio},
		{Name: "detuneCents", Default: 0, Min: -1200, Max: 1200, Rate: RateAudio},
		{Name: "pulseWidth", Default: 0.5, Min: minPulseWidth, Max: maxPulseWidth, Rate: RateAudio},
		{Name: "symmetry", Default: 0.5, Min: 0, Max: 1, Rate: RateAudio},
		{Name: "sineLevel", Default: 1, Min: 0, Max: 1, Rate: RateAudio},
		{Name: "sawLevel", Default: 1, Min: 0, Max: 1, Rate: RateAudio},
		{Name: "triangleLevel", Default: 1, Min: 0, Max: 1, Rate: RateAudio},
		{Name: "pulseLevel", Default: 1, Min: 0, Max: 1, Rate: RateAudio},
		{Name: "mode", Default: float64(ModeMulti), Min: 0, Max: 1, Rate: RateBlock},
	}
}

func (o *Oscillator) SetMode(m OscMode)            { o.mode = m }
func (o *Oscillator) SetWaveform(w Waveform)       { o.waveform = w }
func (o *Oscillator) SetBaseFrequency(hz float64)  { o.baseFreq = clamp(hz, 0, o.sampleRate/2) }
func (o *Oscillator) SetDetune(cents float64)      { o.detuneCents = cents }
func (o *Oscillator) SetSymmetry(s float64)        { o.symmetry = clamp(s, 0, 1) }
func (o *Oscillator) BaseFrequency() float64       { return o.baseFreq }
func (o *Oscillator) Phase() float64               { return o.phase }

// SetPulseWidth clamps the duty cycle away from 0 and 1; a fully open
// or closed pulse collapses to DC.
func (o *Oscillator) SetPulseWidth(w float64) {
	o.pulseWidth = clamp(w, minPulseWidth, maxPulseWidth)
}

func (o *Oscillator) SetLevel(w Waveform, v float64) {
	if w >= 0 && w < numWaveforms {
		o.levels[w] = clamp(v, 0, 1)
	}
}

// SetSineCalibration adjusts the hybrid sine's crossfade exponent and
// extreme amplitude attenuation (1.0 disables the historical droop,
// 0.125 reproduces the measured ~1/8 at the extremes).
func (o *Oscillator) SetSineCalibration(xfadeExponent, extremeAtten float64) {
	if xfadeExponent > 0 {
		o.xfadeExponent = xfadeExponent
	}
	o.extremeAtten = clamp(extremeAtten, 0, 1)
}

// ResetPhase zeroes the master phase, as a hard-sync edge does.
func (o *Oscillator) ResetPhase() {
	o.phase = 0
}

// polyBLEP is the two-sample polynomial band-limited step residual for a
// discontinuity at phase 0, evaluated at phase t with increment dt.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// sineShape holds the block-rate constants of the hybrid asymmetric
// sine: crossfade weight, tanh bias and its DC/normalization terms,
// and the amplitude calibration.
type sineShape struct {
	weight  float64
	bias    float64
	mid     float64
	invHalf float64
	amp     float64
}

func (o *Oscillator) sineShapeFor(symmetry float64) sineShape {
	off := 2*symmetry - 1
	weight := math.Pow(math.Abs(off), o.xfadeExponent)
	bias := o.sineBiasScale * off
	hi := mathTanh(o.sineDrive * (1 + bias))
	lo := mathTanh(o.sineDrive * (-1 + bias))
	return sineShape{
		weight:  weight,
		bias:    bias,
		mid:     (hi + lo) / 2,
		invHalf: 2 / (hi - lo),
		amp:     1 - (1-o.extremeAtten)*weight,
	}
}

// sineAt evaluates the hybrid sine: a pure cosine at centered symmetry,
// crossfaded toward a tanh-shaped, DC-corrected, renormalized triangle
// as symmetry leaves the center. Arithmetic only on the sample path.
func (o *Oscillator) sineAt(phase float64, sh sineShape) float64 {
	pure := math.Cos(2 * math.Pi * phase)
	tri := 4*math.Abs(phase-0.5) - 1
	shaped := (mathTanh(o.sineDrive*(tri+sh.bias)) - sh.mid) * sh.invHalf
	return sh.amp * ((1-sh.weight)*pure + sh.weight*shaped)
}

// ProcessBlock renders one block. cv is the per-sample frequency control
// voltage (1 V/octave; nil means 0 V), sync the hard-sync input (nil
// disables), outA the sine+saw group, outB the pulse+triangle group.
// In single mode the selected waveform lands on outA and outB is zeroed.
func (o *Oscillator) ProcessBlock(cv, sync, outA, outB []float64) {
	n := len(outA)
	sh := o.sineShapeFor(o.symmetry)
	detune := o.detuneCents / 1200
	width := o.pulseWidth
	for i := 0; i < n; i++ {
		if sync != nil {
			s := sync[i]
			if s > 0 && o.prevSync <= 0 {
				o.phase = 0
			}
			o.prevSync = s
		}
		volts := 0.0
		if cv != nil {
			volts = cv[i]
		}
		freq := o.baseFreq * mathExp2(detune+volts)
		dt := freq / o.sampleRate
		if dt > 0.45 {
			dt = 0.45
		}
		p := o.phase

		saw := 2*p - 1 - polyBLEP(p, dt)
		tri := 4*math.Abs(p-0.5) - 1
		pulse := -1.0
		if p < width {
			pulse = 1.0
		}
		pulse += polyBLEP(p, dt)
		pw := p - width + 1
		pw -= math.Floor(pw)
		pulse -= polyBLEP(pw, dt)
		sine := o.sineAt(p, sh)

		if o.mode == ModeMulti {
			outA[i] = o.levels[WaveSine]*sine + o.levels[WaveSaw]*saw
			if outB != nil {
				outB[i] = o.levels[WavePulse]*pulse + o.levels[WaveTriangle]*tri
			}
		} else {
			var v float64
			switch o.waveform {
			case WaveSaw:
				v = saw
			case WaveTriangle:
				v = tri
			case WavePulse:
				v = pulse
			default:
				v = sine
			}
			outA[i] = o.levels[o.waveform] * v
			if outB != nil {
				outB[i] = 0
			}
		}

		o.phase = p + dt
		o.phase -= math.Floor(o.phase)
	}
}
