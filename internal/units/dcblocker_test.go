package units

import (
	"math"
	"testing"
)

func runBlocker(d *DCBlocker, in []float64) []float64 {
	out := make([]float64, len(in))
	for i := 0; i < len(in); i += DefaultBlockSize {
		end := i + DefaultBlockSize
		if end > len(in) {
			end = len(in)
		}
		d.ProcessBlock(in[i:end], out[i:end])
	}
	return out
}

func TestDCBlockerRemovesOffset(t *testing.T) {
	const fs = 48000.0
	d := NewOutputBlocker(fs)
	in := make([]float64, int(fs))
	for i := range in {
		in[i] = 0.8
	}
	out := runBlocker(d, in)
	// One second at a 1 Hz cutoff is ~6 time constants; the offset must
	// be essentially gone.
	if math.Abs(out[len(out)-1]) > 0.01 {
		t.Errorf("residual offset after 1 s = %v", out[len(out)-1])
	}
	// The leading edge passes through at full amplitude.
	if math.Abs(out[0]-0.8) > 1e-9 {
		t.Errorf("step edge = %v, want 0.8", out[0])
	}
}

func TestDCBlockerPassesAudio(t *testing.T) {
	const fs = 48000.0
	d := NewOutputBlocker(fs)
	in := make([]float64, int(fs/4))
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 440 * float64(i) / fs)
	}
	out := runBlocker(d, in)
	inRMS := blockRMS(in[len(in)/2:])
	outRMS := blockRMS(out[len(out)/2:])
	if math.Abs(outRMS-inRMS)/inRMS > 0.01 {
		t.Errorf("440 Hz attenuated: in RMS %v, out RMS %v", inRMS, outRMS)
	}
}

func TestCVBlockerPassesSlowModulation(t *testing.T) {
	const fs = 48000.0
	d := NewCVBlocker(fs)
	// 5 Hz modulation is far above the 0.01 Hz cutoff and must survive.
	in := make([]float64, int(fs))
	for i := range in {
		in[i] = 2 * math.Sin(2*math.Pi*5*float64(i)/fs)
	}
	out := runBlocker(d, in)
	inRMS := blockRMS(in[len(in)/2:])
	outRMS := blockRMS(out[len(out)/2:])
	if math.Abs(outRMS-inRMS)/inRMS > 0.01 {
		t.Errorf("5 Hz modulation attenuated: in RMS %v, out RMS %v", inRMS, outRMS)
	}
}

func TestCVBlockerAutoResetOnSilence(t *testing.T) {
	const fs = 48000.0
	d := NewCVBlocker(fs)
	// Charge the filter with a DC step, then go silent.
	in := make([]float64, int(fs/10))
	for i := range in {
		in[i] = 1
	}
	runBlocker(d, in)
	if _, y1 := d.State(); y1 == 0 {
		t.Fatal("filter state should be charged before silence")
	}
	// 100 ms of exact silence exceeds the 50 ms hold: state snaps to
	// zero and stays there, instead of decaying over tens of seconds.
	silence := make([]float64, int(fs/10))
	out := runBlocker(d, silence)
	x1, y1 := d.State()
	if x1 != 0 || y1 != 0 {
		t.Errorf("state after silence = (%v, %v), want exact zero", x1, y1)
	}
	if out[len(out)-1] != 0 {
		t.Errorf("output after silence = %v, want exact zero", out[len(out)-1])
	}
}

func TestCVBlockerAutoResetNotTriggeredByActivity(t *testing.T) {
	const fs = 48000.0
	d := NewCVBlocker(fs)
	in := make([]float64, int(fs/5))
	for i := range in {
		in[i] = 0.5 * math.Sin(2*math.Pi*3*float64(i)/fs)
	}
	runBlocker(d, in)
	if _, y1 := d.State(); y1 == 0 {
		t.Error("active signal should not trip the silence reset")
	}
}

func TestDCBlockerManualReset(t *testing.T) {
	d := NewOutputBlocker(48000)
	in := make([]float64, 4800)
	for i := range in {
		in[i] = 1
	}
	runBlocker(d, in)
	d.Reset()
	x1, y1 := d.State()
	if x1 != 0 || y1 != 0 {
		t.Errorf("state after manual reset = (%v, %v), want zero", x1, y1)
	}
}

func TestDCBlockerCoefficient(t *testing.T) {
	d := NewDCBlocker(48000, 1)
	want := 1 - 2*math.Pi/48000
	if math.Abs(d.R()-want) > 1e-12 {
		t.Errorf("R = %v, want %v", d.R(), want)
	}
	// Degenerate cutoffs clamp instead of going unstable.
	d.SetCutoff(100, 1000)
	if d.R() < 0 {
		t.Errorf("R = %v, want non-negative clamp", d.R())
	}
}
