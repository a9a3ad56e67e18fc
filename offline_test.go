package synthigme

import (
	"encoding/binary"
	"testing"

	"github.com/mesjetiu/synthigme-go/internal/analysis"
	"github.com/mesjetiu/synthigme-go/internal/patch"
	"github.com/mesjetiu/synthigme-go/internal/units"
)

func TestRenderPatchProducesAudio(t *testing.T) {
	doc := patch.DefaultDocument()
	doc.SetModule("osc", 1, patch.ModuleValues{
		"knobs": []any{frequencyDial(440, units.RangeHi), 0.0, 5.0, 10.0, 5.0, 0.0, 0.0},
	})
	doc.Matrix.Audio = []patch.Connection{
		{Src: "osc1.outA", Dst: "output1.in", Color: "white"},
	}
	samples, err := RenderPatch(doc, 48000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 48000*2 {
		t.Fatalf("sample count = %d, want %d", len(samples), 48000*2)
	}
	left := make([]float64, len(samples)/2)
	for i := range left {
		left[i] = float64(samples[i*2])
	}
	if rms := analysis.RMS(left[len(left)/2:]); rms < 0.1 {
		t.Errorf("rendered RMS = %v, want audible signal", rms)
	}
}

func TestRenderPatchNilDocumentIsSilent(t *testing.T) {
	samples, err := RenderPatch(nil, 48000, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range samples {
		if s != 0 {
			t.Fatalf("sample %d = %v, want silence", i, s)
		}
	}
}

func TestRenderPatchRejectsInvalidDocument(t *testing.T) {
	doc := patch.EmptyDocument()
	doc.Matrix.Audio = []patch.Connection{{Src: "bogus.out", Dst: "output1.in", Color: "white"}}
	if _, err := RenderPatch(doc, 48000, 0.1); err == nil {
		t.Error("invalid patch rendered")
	}
}

func TestEncodeWAVFloat32LEHeader(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1}
	wav := EncodeWAVFloat32LE(samples, 48000, 2)
	if len(wav) != 44+len(samples)*4 {
		t.Fatalf("wav length = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Error("missing RIFF/WAVE/data markers")
	}
	if format := binary.LittleEndian.Uint16(wav[20:]); format != 3 {
		t.Errorf("format tag = %d, want 3 (IEEE float)", format)
	}
	if bits := binary.LittleEndian.Uint16(wav[34:]); bits != 32 {
		t.Errorf("bits per sample = %d, want 32", bits)
	}
	if rate := binary.LittleEndian.Uint32(wav[24:]); rate != 48000 {
		t.Errorf("sample rate = %d", rate)
	}
	if size := binary.LittleEndian.Uint32(wav[40:]); size != uint32(len(samples)*4) {
		t.Errorf("data size = %d", size)
	}
}
