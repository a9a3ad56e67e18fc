package units

import "math"

// CEM 3330 voltage-to-gain calibration, matched against the reference
// hardware: 10 dB per volt below unity, total cutoff at -12 V, and a
// compressed saturation zone for positive control voltages.
const (
	vcaDBPerVolt      = 10.0
	vcaCutoffVoltage  = -12.0
	vcaLinearMax      = 0.0
	vcaHardLimitVolts = 3.0
	vcaSoftness       = 2.0
)

// VoltageToGain implements the three-zone CEM 3330 gain law: zero below
// the cutoff, exponential (10 dB/V) up to 0 V, soft-compressed above.
func VoltageToGain(voltage float64) float64 {
	if voltage <= vcaCutoffVoltage {
		return 0
	}
	if voltage <= vcaLinearMax {
		return math.Pow(10, voltage*vcaDBPerVolt/20)
	}
	softZone := vcaHardLimitVolts - vcaLinearMax
	ratio := (voltage - vcaLinearMax) / softZone
	compressed := softZone * ratio / (1 + ratio*vcaSoftness)
	return math.Pow(10, (vcaLinearMax+compressed)*vcaDBPerVolt/20)
}

// DialToVoltage maps a 0-10 panel dial to control volts: dial 10 is
// unity (0 V), dial 0 sits at the cutoff (-12 V).
func DialToVoltage(dial float64) float64 {
	return (clamp(dial, 0, 10) - 10) * 1.2
}

// VCA converts a control voltage (dial plus scaled CV) into a gain
// through the CEM 3330 law and applies it to the audio input. Gain
// changes are slew-limited with separate rise and fall time constants
// to emulate the chip's thermal lag.
type VCA struct {
	sampleRate  float64
	dialVoltage float64
	cvScale     float64
	slew        *ThermalSlew
}

// NewVCA returns a unity-dial VCA with the default thermal response.
func NewVCA(sampleRate float64) *VCA {
	v := &VCA{
		sampleRate:  sampleRate,
		dialVoltage: 0,
		cvScale:     1,
		slew:        NewThermalSlew(sampleRate, 0.002, 0.005),
	}
	v.slew.Reset(VoltageToGain(0))
	return v
}

func (v *VCA) Params() []Descriptor {
	return []Descriptor{
		{Name: "dial", Default: 10, Min: 0, Max: 10, Rate: RateBlock},
		{Name: "cvScale", Default: 1, Min: 0, Max: 2, Rate: RateBlock},
	}
}

// SetDial positions the panel dial (0-10).
func (v *VCA) SetDial(dial float64) {
	v.dialVoltage = DialToVoltage(dial)
}

// SetDialVoltage sets the dial contribution directly in volts.
func (v *VCA) SetDialVoltage(volts float64) {
	v.dialVoltage = volts
}

func (v *VCA) SetCVScale(scale float64) {
	v.cvScale = scale
}

// SetSlewTimes adjusts the gain slew rise and fall time constants.
func (v *VCA) SetSlewTimes(riseSec, fallSec float64) {
	v.slew.SetTimes(v.sampleRate, riseSec, fallSec)
}

// ProcessBlock applies the voltage-controlled gain to in. cv may be nil
// for a dial-only gain. in and out may alias.
func (v *VCA) ProcessBlock(in, cv, out []float64) {
	for i := range in {
		volts := v.dialVoltage
		if cv != nil {
			volts += cv[i] * v.cvScale
		}
		g := v.slew.Step(VoltageToGain(volts))
		out[i] = in[i] * g
	}
}

// Gain reports the current slewed gain, mainly for tests.
func (v *VCA) Gain() float64 {
	return v.slew.Value()
}
